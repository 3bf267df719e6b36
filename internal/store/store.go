package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store wraps the Postgres connection. It is the durable collaborator for
// users, cases and case documents; the retrieval index itself is
// process-lifetime and rebuilt from these records.
type Store struct {
	DB *sql.DB
}

// CaseRecord is a persisted legal case.
type CaseRecord struct {
	ID          string                 `json:"id"`
	UserID      string                 `json:"user_id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Status      string                 `json:"status"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// CaseDocument is the raw text of one document attached to a case.
type CaseDocument struct {
	ID        string    `json:"id"`
	CaseID    string    `json:"case_id"`
	Source    string    `json:"source"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewWithDSN opens a Postgres connection and verifies it.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{DB: db}, nil
}

// CreateUser inserts a user with a bcrypt password hash.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES ($1,$2,$3,NOW())`,
		uuid.NewString(), email, passwordHash)
	return err
}

// GetUserByEmail returns the user id and password hash for an email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (string, string, error) {
	var id, hash string
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, password_hash FROM users WHERE email=$1`, email).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrNotFound
	}
	return id, hash, err
}

// CreateCase persists a new case record and returns its id.
func (s *Store) CreateCase(ctx context.Context, userID, title, description string, metadata map[string]interface{}) (string, error) {
	id := uuid.NewString()
	metaB, _ := json.Marshal(metadata)
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO cases (id, user_id, title, description, status, metadata, created_at, updated_at)
VALUES ($1,$2,$3,$4,'open',$5,NOW(),NOW())`,
		id, userID, title, description, metaB)
	if err != nil {
		return "", fmt.Errorf("create case: %w", err)
	}
	return id, nil
}

// GetCase fetches one case by id scoped to its owner.
func (s *Store) GetCase(ctx context.Context, id, userID string) (CaseRecord, error) {
	var rec CaseRecord
	var metaB []byte
	err := s.DB.QueryRowContext(ctx, `
SELECT id, user_id, title, description, status, metadata, created_at, updated_at
FROM cases WHERE id=$1 AND user_id=$2`, id, userID).
		Scan(&rec.ID, &rec.UserID, &rec.Title, &rec.Description, &rec.Status, &metaB, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return CaseRecord{}, ErrNotFound
	}
	if err != nil {
		return CaseRecord{}, fmt.Errorf("get case: %w", err)
	}
	if len(metaB) > 0 {
		_ = json.Unmarshal(metaB, &rec.Metadata)
	}
	return rec, nil
}

// ListCases returns a user's cases, optionally filtered by status.
func (s *Store) ListCases(ctx context.Context, userID, status string) ([]CaseRecord, error) {
	query := `
SELECT id, user_id, title, description, status, metadata, created_at, updated_at
FROM cases WHERE user_id=$1`
	args := []interface{}{userID}
	if status != "" {
		query += ` AND status=$2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var out []CaseRecord
	for rows.Next() {
		var rec CaseRecord
		var metaB []byte
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Title, &rec.Description, &rec.Status, &metaB, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		if len(metaB) > 0 {
			_ = json.Unmarshal(metaB, &rec.Metadata)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpdateCaseStatus transitions a case's status.
func (s *Store) UpdateCaseStatus(ctx context.Context, id, userID, status string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE cases SET status=$1, updated_at=NOW() WHERE id=$2 AND user_id=$3`,
		status, id, userID)
	if err != nil {
		return fmt.Errorf("update case status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateCaseDocument stores a document's raw text under a case.
func (s *Store) CreateCaseDocument(ctx context.Context, caseID, source, content string) (string, error) {
	id := uuid.NewString()
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO case_documents (id, case_id, source, content, created_at)
VALUES ($1,$2,$3,$4,NOW())`, id, caseID, source, content)
	if err != nil {
		return "", fmt.Errorf("create case document: %w", err)
	}
	return id, nil
}

// ListCaseDocuments returns all documents attached to a case.
func (s *Store) ListCaseDocuments(ctx context.Context, caseID string) ([]CaseDocument, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, case_id, source, content, created_at
FROM case_documents WHERE case_id=$1 ORDER BY created_at`, caseID)
	if err != nil {
		return nil, fmt.Errorf("list case documents: %w", err)
	}
	defer rows.Close()

	var out []CaseDocument
	for rows.Next() {
		var d CaseDocument
		if err := rows.Scan(&d.ID, &d.CaseID, &d.Source, &d.Content, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListAllDocuments returns every stored document, used by the re-index job to
// rebuild the process-local retrieval index.
func (s *Store) ListAllDocuments(ctx context.Context) ([]CaseDocument, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, case_id, source, content, created_at
FROM case_documents ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list all documents: %w", err)
	}
	defer rows.Close()

	var out []CaseDocument
	for rows.Next() {
		var d CaseDocument
		if err := rows.Scan(&d.ID, &d.CaseID, &d.Source, &d.Content, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
