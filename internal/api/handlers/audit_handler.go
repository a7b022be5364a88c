package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/auma/compliance-gate/internal/models"
	"github.com/auma/compliance-gate/internal/services"
)

type AuditHandler struct {
	service *services.ComplianceService
}

func NewAuditHandler(service *services.ComplianceService) *AuditHandler {
	return &AuditHandler{service: service}
}

type auditEntryResponse struct {
	UUID        string          `json:"uuid"`
	LoanID      string          `json:"loan_id,omitempty"`
	LocationID  string          `json:"location_id"`
	ActionType  string          `json:"action_type"`
	PerformedBy models.Actor    `json:"performed_by,omitempty"`
	Details     json.RawMessage `json:"details"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (h *AuditHandler) List(c *gin.Context) {
	limit, err := parseLimit(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, err := h.service.ListAudit(c.Request.Context(), services.AuditFilter{
		LocationID: locationID(c, ""),
		LoanID:     c.Query("loan_id"),
		ActionType: c.Query("action_type"),
		Limit:      limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]auditEntryResponse, 0, len(rows))
	for _, r := range rows {
		details := json.RawMessage(r.Details)
		if len(details) == 0 {
			details = json.RawMessage("{}")
		}
		out = append(out, auditEntryResponse{
			UUID:        r.UUID,
			LoanID:      r.LoanID,
			LocationID:  r.LocationID,
			ActionType:  r.ActionType,
			PerformedBy: r.PerformedBy,
			Details:     details,
			CreatedAt:   r.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}
