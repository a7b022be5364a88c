package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/auma/compliance-gate/internal/models"
	"github.com/auma/compliance-gate/internal/services"
)

type ComplianceHandler struct {
	service *services.ComplianceService
}

func NewComplianceHandler(service *services.ComplianceService) *ComplianceHandler {
	return &ComplianceHandler{service: service}
}

type checkRequest struct {
	Message       string               `json:"message" binding:"required"`
	LoanID        string               `json:"loan_id" binding:"required"`
	LocationID    string               `json:"location_id"`
	BorrowerID    string               `json:"borrower_id"`
	BorrowerName  string               `json:"borrower_name"`
	Source        models.MessageSource `json:"source"`
	SafeTopicHint bool                 `json:"safe_topic_hint"`
}

// Check classifies a borrower message. Blocked messages are still a 200:
// the body carries the reply to show the borrower.
func (h *ComplianceHandler) Check(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	loc := locationID(c, req.LocationID)
	if loc == "" {
		respondError(c, services.ErrLocationRequired)
		return
	}

	res := h.service.CheckMessage(c.Request.Context(), req.Message, services.CheckContext{
		LoanID:        req.LoanID,
		LocationID:    loc,
		BorrowerID:    req.BorrowerID,
		BorrowerName:  req.BorrowerName,
		Source:        req.Source,
		SafeTopicHint: req.SafeTopicHint,
	})
	c.JSON(http.StatusOK, res)
}

type validateRequest struct {
	Response   string `json:"response" binding:"required"`
	LoanID     string `json:"loan_id"`
	LocationID string `json:"location_id"`
}

// Validate checks an AI generated reply before it is sent.
func (h *ComplianceHandler) Validate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	loc := locationID(c, req.LocationID)
	if loc == "" {
		respondError(c, services.ErrLocationRequired)
		return
	}

	res := h.service.ValidateAIResponse(c.Request.Context(), req.Response, services.CheckContext{
		LoanID:     req.LoanID,
		LocationID: loc,
	})
	c.JSON(http.StatusOK, res)
}

func (h *ComplianceHandler) Stats(c *gin.Context) {
	from, to, err := parseRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	stats, err := h.service.GetComplianceStats(c.Request.Context(), locationID(c, ""), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// CompliantResponse returns a safe canned reply for a topic. A loan_id
// personalises it and then requires the location.
func (h *ComplianceHandler) CompliantResponse(c *gin.Context) {
	topic := c.Param("topic")
	text, err := h.service.CompliantResponse(c.Request.Context(), locationID(c, ""), topic, c.Query("loan_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topic": topic, "response": text})
}
