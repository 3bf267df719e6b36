package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/atticus-legal/atticus/internal/rag"
	"github.com/atticus-legal/atticus/internal/store"
)

type CasesHandler struct {
	Store *store.Store
	RAG   *rag.Service
}

func (h *CasesHandler) Register(g *echo.Group, secret []byte) {
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc { return withAuth(next, secret) })
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.POST("/:id/documents", h.uploadDocument)
}

// Create case
//
//	@Summary	Create a case
//	@Tags		cases
//	@Security	BearerAuth
//	@Accept		json
//	@Produce	json
//	@Param		payload	body		CaseCreateRequest	true	"Case payload"
//	@Success	201		{object}	map[string]string
//	@Failure	400		{object}	HTTPError
//	@Router		/api/cases [post]
func (h *CasesHandler) create(c echo.Context) error {
	userID := c.Get("user_id").(string)
	var req CaseCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title required")
	}
	id, err := h.Store.CreateCase(c.Request().Context(), userID, req.Title, req.Description, req.Metadata)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}

// List cases
//
//	@Summary	List cases
//	@Tags		cases
//	@Security	BearerAuth
//	@Produce	json
//	@Param		status	query		string	false	"Filter by status"
//	@Success	200		{array}		store.CaseRecord
//	@Router		/api/cases [get]
func (h *CasesHandler) list(c echo.Context) error {
	userID := c.Get("user_id").(string)
	items, err := h.Store.ListCases(c.Request().Context(), userID, c.QueryParam("status"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []store.CaseRecord{}
	}
	return c.JSON(http.StatusOK, items)
}

// Get case
//
//	@Summary	Get a case
//	@Tags		cases
//	@Security	BearerAuth
//	@Produce	json
//	@Param		id	path		string	true	"Case ID"
//	@Success	200	{object}	store.CaseRecord
//	@Failure	404	{object}	HTTPError
//	@Router		/api/cases/{id} [get]
func (h *CasesHandler) get(c echo.Context) error {
	userID := c.Get("user_id").(string)
	rec, err := h.Store.GetCase(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "case not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}

// Upload document
//
//	@Summary		Attach a document to a case and index it
//	@Description	Persists the raw text, then segments, embeds and indexes it for retrieval
//	@Tags			cases
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Case ID"
//	@Param			payload	body		DocumentUploadRequest	true	"Document payload"
//	@Success		201		{object}	IngestResponse
//	@Failure		400		{object}	HTTPError
//	@Failure		404		{object}	HTTPError
//	@Router			/api/cases/{id}/documents [post]
func (h *CasesHandler) uploadDocument(c echo.Context) error {
	ctx := c.Request().Context()
	userID := c.Get("user_id").(string)
	caseID := c.Param("id")

	if _, err := h.Store.GetCase(ctx, caseID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "case not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var req DocumentUploadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content required")
	}

	docID, err := h.Store.CreateCaseDocument(ctx, caseID, req.Source, req.Content)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	source := req.Source
	if source == "" {
		source = docID
	}
	stats, err := h.RAG.Ingest(ctx, req.Content, source)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	chunksIndexedTotal.Add(float64(stats.ChunksIndexed))
	embedFallbacksTotal.Add(float64(stats.FallbackBatches))

	return c.JSON(http.StatusCreated, IngestResponse{
		DocumentID:       docID,
		ChunksIndexed:    stats.ChunksIndexed,
		ProcessingTimeMs: stats.ProcessingTimeMs,
	})
}
