package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MloUser is a licensed loan originator belonging to a location.
type MloUser struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	LocationID    string    `json:"location_id" gorm:"index"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	LicenseNumber string    `json:"license_number"`
	CRMUserID     string    `json:"crm_user_id"`
	CreatedAt     time.Time `json:"created_at"`
}

func (m *MloUser) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}

// Loan is the slice of the loan record the compliance gate reads.
type Loan struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	LocationID    string    `json:"location_id" gorm:"index"`
	LoanNumber    string    `json:"loan_number"`
	BorrowerName  string    `json:"borrower_name"`
	CRMContactID  string    `json:"crm_contact_id"`
	AssignedMloID *string   `json:"assigned_mlo_id"`
	AssignedMlo   *MloUser  `json:"assigned_mlo,omitempty" gorm:"foreignKey:AssignedMloID"`
	CreatedAt     time.Time `json:"created_at"`
}

func (l *Loan) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return
}

// MloContext is everything the notifier needs to reach the assigned MLO.
type MloContext struct {
	UserID        string `json:"user_id"`
	CRMUserID     string `json:"crm_user_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	LicenseNumber string `json:"license_number"`

	LoanNumber   string `json:"loan_number"`
	BorrowerName string `json:"borrower_name"`
	ContactID    string `json:"contact_id"`
}
