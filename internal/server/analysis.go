package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/atticus-legal/atticus/internal/llm"
	"github.com/atticus-legal/atticus/internal/rag"
	"github.com/atticus-legal/atticus/internal/store"
	"github.com/atticus-legal/atticus/internal/stream"
)

var analysisTracer = otel.Tracer("atticus/server/analysis")

// AnalysisHandler serves streaming analysis sessions over Server-Sent Events.
type AnalysisHandler struct {
	Store    *store.Store
	RAG      *rag.Service
	Provider llm.Provider
	Logger   *log.Logger

	// ChunkDelay paces the scripted mock stream; zero uses the default.
	ChunkDelay time.Duration
}

func (h *AnalysisHandler) Register(g *echo.Group, secret []byte) {
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc { return withAuth(next, secret) })
	g.POST("/stream", h.stream)
}

// stream opens one analysis session and pushes its events as SSE until the
// terminal complete/error event.
//
//	@Summary	Streaming document analysis
//	@Tags		analysis
//	@Security	BearerAuth
//	@Accept		json
//	@Param		payload	body	StreamRequest	true	"Stream request"
//	@Produce	text/event-stream
//	@Success	200	{string}	string
//	@Failure	400	{object}	HTTPError
//	@Failure	404	{object}	HTTPError
//	@Failure	503	{object}	HTTPError
//	@Router		/api/analysis/stream [post]
func (h *AnalysisHandler) stream(c echo.Context) error {
	req := c.Request()
	ctx := req.Context()
	ctx, span := analysisTracer.Start(ctx, "AnalysisHandler.stream",
		trace.WithAttributes(attribute.String("component", "analysis")))
	defer span.End()
	c.SetRequest(req.WithContext(ctx))
	userID, _ := c.Get("user_id").(string)

	var body StreamRequest
	if err := c.Bind(&body); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	mode := normalizeMode(body.Mode)
	span.SetAttributes(attribute.String("mode", mode))

	prompt := strings.TrimSpace(body.Prompt)
	if ref := strings.TrimSpace(body.CaseReference); ref != "" {
		rec, err := h.Store.GetCase(ctx, ref, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				span.SetStatus(codes.Error, "case not found")
				return echo.NewHTTPError(http.StatusNotFound, "case not found")
			}
			span.RecordError(err)
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if prompt == "" {
			prompt = fmt.Sprintf("Provide a legal %s of the case %q: %s", mode, rec.Title, rec.Description)
		}
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.Header().Set("X-Accel-Buffering", "no")
	resp.WriteHeader(http.StatusOK)
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		span.SetStatus(codes.Error, "streaming unsupported")
		return echo.NewHTTPError(http.StatusServiceUnavailable, "streaming unsupported")
	}
	streamSessionsTotal.Inc()

	sess := &stream.Session{
		Mode:       mode,
		Prompt:     prompt,
		CaseRef:    strings.TrimSpace(body.CaseReference),
		ChunkDelay: h.ChunkDelay,
		Logger:     h.Logger,
	}
	if h.Provider != nil && h.Provider.Available() && prompt != "" {
		// retrieval runs inside the work phase so the connected event is
		// already on the wire before any embedding call
		var results []rag.RetrievalResult
		sess.Generate = func(ctx2 context.Context, onDelta func(string) error) (string, error) {
			hits, _, err := h.RAG.Retrieve(ctx2, prompt, rag.RetrieveOptions{})
			if err != nil {
				span.RecordError(err)
				hits = nil
			}
			results = hits
			return h.Provider.GenerateStream(ctx2, rag.BuildPrompt(prompt, results), onDelta)
		}
		sess.Finalize = func(full string, deltas int) any {
			return h.RAG.Finalize(full, results)
		}
	}

	emit := func(ev stream.Event) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(resp, "event: %s\ndata: %s\n\n", ev.Type(), data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	sess.Run(ctx, emit)
	return nil
}

func normalizeMode(mode string) string {
	switch mode {
	case "chat", "summarize":
		return mode
	default:
		return "analyze"
	}
}
