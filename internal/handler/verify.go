package handler

import (
	"context"
	"net/http"

	"gazetteer-api/internal/models"

	"github.com/gin-gonic/gin"
)

// VerifyHandler handles ingestion-health requests
type VerifyHandler struct {
	service VerifyService
}

// Service interface for dependency injection
type VerifyService interface {
	Verify(ctx context.Context) (*models.VerificationReport, error)
}

// NewVerifyHandler creates a new verify handler
func NewVerifyHandler(svc VerifyService) *VerifyHandler {
	return &VerifyHandler{service: svc}
}

// Verify handles GET /api/verify requests.
//
// @Summary      Verify ingestion health
// @Description  Record counts per variant, expected-index presence and the last ingest time.
// @Tags         verify
// @Produce      json
// @Param        token  query  string  true  "API token"
// @Success      200  {object}  models.VerificationReport
// @Failure      403  {object}  map[string]string
// @Failure      504  {object}  map[string]string
// @Router       /api/verify [get]
func (h *VerifyHandler) Verify(c *gin.Context) {
	report, err := h.service.Verify(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
