package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrAuditImmutable is returned by the gorm hooks when something tries to
// change or remove a written audit entry.
var ErrAuditImmutable = errors.New("audit log entries are immutable")

// AuditLog is an append-only record of a compliance relevant action.
type AuditLog struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UUID        string    `json:"uuid" gorm:"uniqueIndex"`
	LoanID      string    `json:"loan_id" gorm:"index"`
	LocationID  string    `json:"location_id" gorm:"index"`
	ActionType  string    `json:"action_type" gorm:"index;not null"`
	PerformedBy Actor     `json:"performed_by"`
	Details     string    `json:"details" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) (err error) {
	if a.UUID == "" {
		a.UUID = uuid.NewString()
	}
	return
}

func (a *AuditLog) BeforeUpdate(tx *gorm.DB) error { return ErrAuditImmutable }

func (a *AuditLog) BeforeDelete(tx *gorm.DB) error { return ErrAuditImmutable }

const (
	ActionSafeActEscalation      = "safe_act_escalation"
	ActionMloNotificationSent    = "mlo_notification_sent"
	ActionAIResponseViolation    = "ai_response_violation"
	ActionEscalationAcknowledged = "escalation_acknowledged"
	ActionEscalationResolved     = "escalation_resolved"
	ActionManualEscalation       = "manual_escalation"
	ActionComplianceDegraded     = "compliance_degraded"
	ActionFallbackAlertSent      = "fallback_alert_sent"
)
