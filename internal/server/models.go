package server

// HTTPError is the unified error envelope returned by the API.
type HTTPError struct {
	Error string `json:"error"`
}

// AuthSignupRequest is the signup payload.
type AuthSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthLoginRequest is the login payload.
type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries the issued JWT.
type TokenResponse struct {
	Token string `json:"token"`
}

// CaseCreateRequest creates a case.
type CaseCreateRequest struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// DocumentUploadRequest attaches a document's text to a case.
type DocumentUploadRequest struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

// IngestResponse reports one ingestion.
type IngestResponse struct {
	DocumentID       string `json:"document_id,omitempty"`
	ChunksIndexed    int    `json:"chunks_indexed"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
}

// IngestRequest indexes raw text directly, outside any case.
type IngestRequest struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

// QueryRequest asks a grounded question against the index. MinScore absent
// applies the configured threshold; an explicit 0 disables it.
type QueryRequest struct {
	Query    string   `json:"query"`
	TopK     int      `json:"top_k,omitempty"`
	MinScore *float64 `json:"min_score,omitempty"`
	Category string   `json:"category,omitempty"`
	Source   string   `json:"source,omitempty"`
}

// StreamRequest opens a streaming analysis session.
type StreamRequest struct {
	Prompt        string `json:"prompt,omitempty"`
	CaseReference string `json:"case_reference,omitempty"`
	Mode          string `json:"mode,omitempty"` // analyze | chat | summarize
}
