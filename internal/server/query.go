package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/atticus-legal/atticus/internal/rag"
)

type QueryHandler struct {
	RAG *rag.Service
}

func (h *QueryHandler) Register(g *echo.Group, secret []byte) {
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc { return withAuth(next, secret) })
	g.POST("/ingest", h.ingest)
	g.POST("/query", h.query)
}

// Ingest
//
//	@Summary		Index raw document text
//	@Description	Segments, chunks, embeds and indexes the text for retrieval without attaching it to a case
//	@Tags			query
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		IngestRequest	true	"Ingest payload"
//	@Success		201		{object}	IngestResponse
//	@Failure		400		{object}	HTTPError
//	@Router			/api/rag/ingest [post]
func (h *QueryHandler) ingest(c echo.Context) error {
	var req IngestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Content) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content required")
	}
	if req.Source == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "source required")
	}

	stats, err := h.RAG.Ingest(c.Request().Context(), req.Content, req.Source)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	chunksIndexedTotal.Add(float64(stats.ChunksIndexed))
	embedFallbacksTotal.Add(float64(stats.FallbackBatches))

	return c.JSON(http.StatusCreated, IngestResponse{
		ChunksIndexed:    stats.ChunksIndexed,
		ProcessingTimeMs: stats.ProcessingTimeMs,
	})
}

// Query
//
//	@Summary		Grounded question answering
//	@Description	Retrieves the most relevant indexed passages and generates a cited answer
//	@Tags			query
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		QueryRequest	true	"Query payload"
//	@Success		200		{object}	map[string]interface{}
//	@Failure		400		{object}	HTTPError
//	@Router			/api/rag/query [post]
func (h *QueryHandler) query(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query required")
	}

	response, metrics, err := h.RAG.Answer(c.Request().Context(), req.Query, rag.RetrieveOptions{
		TopK:     req.TopK,
		MinScore: req.MinScore,
		Category: req.Category,
		Source:   req.Source,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	queriesTotal.Inc()

	return c.JSON(http.StatusOK, map[string]interface{}{
		"response": response,
		"metrics":  metrics,
	})
}
