package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/auma/compliance-gate/internal/models"
)

// AuditEntry is a single compliance event to be recorded.
type AuditEntry struct {
	LoanID      string
	LocationID  string
	ActionType  string
	PerformedBy models.Actor
	Details     map[string]interface{}
}

// AuditFilter narrows List. LocationID is required.
type AuditFilter struct {
	LocationID string
	LoanID     string
	ActionType string
	Limit      int
}

// AuditService appends to and reads the audit log. It never updates or
// deletes rows.
type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Log stores an audit entry
func (s *AuditService) Log(ctx context.Context, e AuditEntry) (*models.AuditLog, error) {
	details := e.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("encode audit details: %w", err)
	}

	row := &models.AuditLog{
		LoanID:      e.LoanID,
		LocationID:  e.LocationID,
		ActionType:  e.ActionType,
		PerformedBy: e.PerformedBy,
		Details:     string(raw),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("write audit log %s: %w", e.ActionType, err)
	}
	return row, nil
}

// List returns recent entries for a location, ordered by created_at desc
func (s *AuditService) List(ctx context.Context, f AuditFilter) ([]models.AuditLog, error) {
	if f.LocationID == "" {
		return nil, ErrLocationRequired
	}
	q := s.db.WithContext(ctx).Where("location_id = ?", f.LocationID).Order("created_at desc, id desc")
	if f.LoanID != "" {
		q = q.Where("loan_id = ?", f.LoanID)
	}
	if f.ActionType != "" {
		q = q.Where("action_type = ?", f.ActionType)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var res []models.AuditLog
	if err := q.Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

// DecodeDetails unmarshals an entry's details payload.
func DecodeDetails(a models.AuditLog) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if a.Details == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(a.Details), &out); err != nil {
		return nil, err
	}
	return out, nil
}
