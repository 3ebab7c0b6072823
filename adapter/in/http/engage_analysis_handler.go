package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"engage_server/core/port/in"
	"engage_server/core/service/analysis"
	"engage_server/pkg/apperr"
	"engage_server/pkg/response"
)

// AnalysisHandler serves the analysis pipeline endpoints.
type AnalysisHandler struct {
	svc in.AnalysisService
}

func NewAnalysisHandler(svc in.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{svc: svc}
}

type analyzeRequest struct {
	Count int `json:"count"`
}

// Analyze handles POST /api/analyze.
func (h *AnalysisHandler) Analyze(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	var req analyzeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperr.BadRequest("invalid request body")
		}
	}
	if req.Count < 0 {
		return apperr.BadRequest("count must be positive")
	}

	batch, err := h.svc.Analyze(c.Context(), userID, req.Count)
	if err != nil {
		return err
	}

	return response.OK(c, batch)
}

// List handles GET /api/analyses.
func (h *AnalysisHandler) List(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	p := response.GetPagination(c, 20, 100)
	records, total, err := h.svc.List(c.Context(), userID, p.PageSize, p.Offset)
	if err != nil {
		return err
	}

	return response.OKWithMeta(c, records, &response.Meta{
		Total:    total,
		Page:     p.Page,
		PageSize: p.PageSize,
		HasMore:  p.Offset+len(records) < total,
	})
}

// Get handles GET /api/analyses/:id.
func (h *AnalysisHandler) Get(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("invalid analysis id")
	}

	rec, err := h.svc.Get(c.Context(), userID, id)
	if err != nil {
		return err
	}

	return response.OK(c, rec)
}

// Export handles GET /api/export/:id?format=markdown|text.
func (h *AnalysisHandler) Export(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("invalid analysis id")
	}

	format := c.Query("format", analysis.FormatMarkdown)
	body, contentType, err := h.svc.Export(c.Context(), userID, id, format)
	if err != nil {
		return err
	}

	ext := "md"
	if format == analysis.FormatText {
		ext = "txt"
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="analysis-%s.%s"`, id, ext))
	return c.SendString(body)
}

// Stats handles GET /api/stats.
func (h *AnalysisHandler) Stats(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	stats, err := h.svc.Stats(c.Context(), userID)
	if err != nil {
		return err
	}

	return response.OK(c, stats)
}
