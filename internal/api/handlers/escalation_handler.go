package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/auma/compliance-gate/internal/models"
	"github.com/auma/compliance-gate/internal/services"
)

type EscalationHandler struct {
	service *services.ComplianceService
}

func NewEscalationHandler(service *services.ComplianceService) *EscalationHandler {
	return &EscalationHandler{service: service}
}

func (h *EscalationHandler) List(c *gin.Context) {
	from, to, err := parseRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit, err := parseLimit(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	list, err := h.service.ListEscalations(c.Request.Context(), services.EscalationFilter{
		LocationID: locationID(c, ""),
		LoanID:     c.Query("loan_id"),
		Status:     models.EscalationStatus(c.Query("status")),
		From:       from,
		To:         to,
		Limit:      limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *EscalationHandler) Get(c *gin.Context) {
	esc, err := h.service.GetEscalation(c.Request.Context(), locationID(c, ""), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, esc)
}

type manualEscalationRequest struct {
	LoanID      string               `json:"loan_id" binding:"required"`
	LocationID  string               `json:"location_id"`
	BorrowerID  string               `json:"borrower_id"`
	Note        string               `json:"note" binding:"required"`
	Source      models.MessageSource `json:"source"`
	PerformedBy models.Actor         `json:"performed_by"`
}

// Create opens a manual escalation.
func (h *EscalationHandler) Create(c *gin.Context) {
	var req manualEscalationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	esc, err := h.service.EscalateManually(c.Request.Context(), services.CheckContext{
		LoanID:     req.LoanID,
		LocationID: locationID(c, req.LocationID),
		BorrowerID: req.BorrowerID,
		Source:     req.Source,
	}, req.Note, req.PerformedBy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, esc)
}

type transitionRequest struct {
	LocationID string `json:"location_id"`
	MloID      string `json:"mlo_id"`
	Note       string `json:"note"`
}

func (h *EscalationHandler) Acknowledge(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	esc, err := h.service.AcknowledgeEscalation(c.Request.Context(), locationID(c, req.LocationID), c.Param("id"), req.MloID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, esc)
}

func (h *EscalationHandler) Resolve(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	esc, err := h.service.ResolveEscalation(c.Request.Context(), locationID(c, req.LocationID), c.Param("id"), req.MloID, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, esc)
}
