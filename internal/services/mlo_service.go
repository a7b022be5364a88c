package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/auma/compliance-gate/internal/models"
)

// ErrLoanNotFound is returned when the loan id does not exist in the
// caller's location.
var ErrLoanNotFound = errors.New("loan not found")

// MloLookup resolves the originator assigned to a loan.
type MloLookup interface {
	GetMloContextForLoan(ctx context.Context, locationID, loanID string) (*models.MloContext, error)
}

// MloService reads loans and their assigned originator.
type MloService struct {
	db *gorm.DB
}

func NewMloService(db *gorm.DB) *MloService {
	return &MloService{db: db}
}

// GetMloContextForLoan returns the assigned MLO for loanID within
// locationID, or nil with no error when the loan has nobody assigned. A loan
// in another location is reported as ErrLoanNotFound.
func (s *MloService) GetMloContextForLoan(ctx context.Context, locationID, loanID string) (*models.MloContext, error) {
	if locationID == "" {
		return nil, ErrLocationRequired
	}
	var loan models.Loan
	err := s.db.WithContext(ctx).Preload("AssignedMlo").
		Where("id = ? AND location_id = ?", loanID, locationID).First(&loan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("load loan %s: %w", loanID, err)
	}
	// An originator from another location is never notified.
	if loan.AssignedMlo == nil || loan.AssignedMlo.LocationID != locationID {
		return nil, nil
	}

	m := loan.AssignedMlo
	return &models.MloContext{
		UserID:        m.ID,
		CRMUserID:     m.CRMUserID,
		Name:          m.Name,
		Email:         m.Email,
		Phone:         m.Phone,
		LicenseNumber: m.LicenseNumber,
		LoanNumber:    loan.LoanNumber,
		BorrowerName:  loan.BorrowerName,
		ContactID:     loan.CRMContactID,
	}, nil
}

// CreateMlo inserts an originator.
func (s *MloService) CreateMlo(ctx context.Context, m *models.MloUser) error {
	return s.db.WithContext(ctx).Create(m).Error
}

// CreateLoan inserts a loan.
func (s *MloService) CreateLoan(ctx context.Context, l *models.Loan) error {
	return s.db.WithContext(ctx).Create(l).Error
}
