package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EscalationStatus string

const (
	EscalationPending      EscalationStatus = "pending"
	EscalationAcknowledged EscalationStatus = "acknowledged"
	EscalationResolved     EscalationStatus = "resolved"
)

// Escalation is the durable record that a borrower or AI exchange needs a
// licensed originator. Rows are never deleted.
type Escalation struct {
	ID              string           `json:"id" gorm:"primaryKey"`
	LoanID          string           `json:"loan_id" gorm:"index;not null"`
	LocationID      string           `json:"location_id" gorm:"index;not null"`
	BorrowerID      *string          `json:"borrower_id,omitempty"`
	Reason          ComplianceReason `json:"reason" gorm:"index;not null"`
	Status          EscalationStatus `json:"status" gorm:"index;default:pending"`
	Source          MessageSource    `json:"source,omitempty"`
	TriggerMessage  string           `json:"trigger_message" gorm:"type:text"`
	MatchedKeywords string           `json:"-" gorm:"type:text"`
	AutoResponse    string           `json:"auto_response,omitempty" gorm:"type:text"`
	AssignedMloID   *string          `json:"assigned_mlo_id,omitempty"`
	MloResponse     string           `json:"mlo_response,omitempty" gorm:"type:text"`
	CreatedAt       time.Time        `json:"created_at" gorm:"index"`
	AcknowledgedAt  *time.Time       `json:"acknowledged_at,omitempty"`
	ResolvedAt      *time.Time       `json:"resolved_at,omitempty"`
}

func (e *Escalation) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Status == "" {
		e.Status = EscalationPending
	}
	return
}

// Keywords decodes the stored keyword list.
func (e *Escalation) Keywords() []string {
	if e.MatchedKeywords == "" {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal([]byte(e.MatchedKeywords), &out); err != nil {
		return []string{}
	}
	return out
}

// SetKeywords encodes kw into the keyword column.
func (e *Escalation) SetKeywords(kw []string) {
	if kw == nil {
		kw = []string{}
	}
	b, _ := json.Marshal(kw)
	e.MatchedKeywords = string(b)
}

// MarshalJSON exposes the keyword list as an array rather than the raw column.
func (e Escalation) MarshalJSON() ([]byte, error) {
	type alias Escalation
	return json.Marshal(struct {
		alias
		MatchedKeywords []string `json:"matched_keywords"`
	}{alias: alias(e), MatchedKeywords: e.Keywords()})
}
