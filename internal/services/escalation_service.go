package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/auma/compliance-gate/internal/models"
)

// EscalationInput describes a new escalation. ID may be preassigned.
type EscalationInput struct {
	ID              string
	LoanID          string
	LocationID      string
	BorrowerID      *string
	Reason          models.ComplianceReason
	TriggerMessage  string
	MatchedKeywords []string
	Source          models.MessageSource
	AutoResponse    string
	AssignedMloID   *string
}

// EscalationFilter narrows List. LocationID is required.
type EscalationFilter struct {
	LocationID string
	LoanID     string
	Status     models.EscalationStatus
	From       time.Time
	To         time.Time
	Limit      int
}

// EscalationStats summarizes a location's escalations over a date range.
type EscalationStats struct {
	TotalEscalations     int                             `json:"total_escalations"`
	ByReason             map[models.ComplianceReason]int `json:"by_reason"`
	AvgResolutionMinutes int                             `json:"avg_resolution_minutes"`
	ResolvedPercentage   float64                         `json:"resolved_percentage"`
}

// EscalationService is the ledger of escalations. Status only moves forward:
// pending, acknowledged, resolved.
type EscalationService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewEscalationService(db *gorm.DB) *EscalationService {
	return &EscalationService{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// NewEscalation builds a pending escalation without persisting it.
func (s *EscalationService) NewEscalation(in EscalationInput) (*models.Escalation, error) {
	if in.LocationID == "" {
		return nil, ErrLocationRequired
	}
	if in.LoanID == "" {
		return nil, ErrLoanRequired
	}
	if !in.Reason.Valid() || in.Reason == models.ReasonNone {
		return nil, fmt.Errorf("%w: %q", ErrInvalidReason, in.Reason)
	}

	id := in.ID
	if id == "" {
		id = uuid.New().String()
	}
	esc := &models.Escalation{
		ID:             id,
		LoanID:         in.LoanID,
		LocationID:     in.LocationID,
		BorrowerID:     in.BorrowerID,
		Reason:         in.Reason,
		Status:         models.EscalationPending,
		Source:         in.Source,
		TriggerMessage: in.TriggerMessage,
		AutoResponse:   in.AutoResponse,
		AssignedMloID:  in.AssignedMloID,
		CreatedAt:      s.now(),
	}
	esc.SetKeywords(in.MatchedKeywords)
	return esc, nil
}

// Create persists a new pending escalation in a single insert.
func (s *EscalationService) Create(ctx context.Context, in EscalationInput) (*models.Escalation, error) {
	esc, err := s.NewEscalation(in)
	if err != nil {
		return nil, err
	}
	if err := s.Insert(ctx, esc); err != nil {
		return nil, err
	}
	return esc, nil
}

// Insert persists an escalation built by NewEscalation.
func (s *EscalationService) Insert(ctx context.Context, esc *models.Escalation) error {
	if err := s.db.WithContext(ctx).Create(esc).Error; err != nil {
		return fmt.Errorf("create escalation: %w", err)
	}
	return nil
}

// Get returns one escalation scoped to its location.
func (s *EscalationService) Get(ctx context.Context, locationID, id string) (*models.Escalation, error) {
	if locationID == "" {
		return nil, ErrLocationRequired
	}
	var esc models.Escalation
	if err := s.db.WithContext(ctx).Where("id = ? AND location_id = ?", id, locationID).First(&esc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEscalationNotFound
		}
		return nil, err
	}
	return &esc, nil
}

// List returns escalations matching f, newest first.
func (s *EscalationService) List(ctx context.Context, f EscalationFilter) ([]models.Escalation, error) {
	q, err := s.scoped(ctx, f.LocationID, f.From, f.To)
	if err != nil {
		return nil, err
	}
	if f.LoanID != "" {
		q = q.Where("loan_id = ?", f.LoanID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	res := []models.Escalation{}
	if err := q.Order("created_at desc").Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

// Acknowledge moves a pending escalation to acknowledged. Acknowledging an
// already acknowledged escalation is a no-op; a resolved one is an error.
func (s *EscalationService) Acknowledge(ctx context.Context, locationID, id, mloID string) (*models.Escalation, error) {
	if locationID == "" {
		return nil, ErrLocationRequired
	}
	updates := map[string]interface{}{
		"status":          models.EscalationAcknowledged,
		"acknowledged_at": s.now(),
	}
	if mloID != "" {
		updates["assigned_mlo_id"] = mloID
	}

	res := s.db.WithContext(ctx).Model(&models.Escalation{}).
		Where("id = ? AND location_id = ? AND status = ?", id, locationID, models.EscalationPending).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("acknowledge escalation: %w", res.Error)
	}

	esc, err := s.Get(ctx, locationID, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 && esc.Status == models.EscalationResolved {
		return nil, ErrEscalationResolved
	}
	return esc, nil
}

// Resolve closes a pending or acknowledged escalation. The conditional
// update guarantees only one caller resolves it.
func (s *EscalationService) Resolve(ctx context.Context, locationID, id, mloID, note string) (*models.Escalation, error) {
	if locationID == "" {
		return nil, ErrLocationRequired
	}
	updates := map[string]interface{}{
		"status":      models.EscalationResolved,
		"resolved_at": s.now(),
	}
	if note != "" {
		updates["mlo_response"] = note
	}
	if mloID != "" {
		updates["assigned_mlo_id"] = mloID
	}

	res := s.db.WithContext(ctx).Model(&models.Escalation{}).
		Where("id = ? AND location_id = ? AND status IN ?", id, locationID,
			[]models.EscalationStatus{models.EscalationPending, models.EscalationAcknowledged}).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("resolve escalation: %w", res.Error)
	}

	esc, err := s.Get(ctx, locationID, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, ErrEscalationResolved
	}
	return esc, nil
}

// StatsFor aggregates a location's escalations created within [from, to].
// A zero bound is open. Empty ranges yield zeros.
func (s *EscalationService) StatsFor(ctx context.Context, locationID string, from, to time.Time) (EscalationStats, error) {
	stats := EscalationStats{ByReason: map[models.ComplianceReason]int{}}

	q, err := s.scoped(ctx, locationID, from, to)
	if err != nil {
		return stats, err
	}

	var rows []models.Escalation
	if err := q.Select("reason", "status", "created_at", "resolved_at").Find(&rows).Error; err != nil {
		return stats, fmt.Errorf("load escalation stats: %w", err)
	}

	var resolved int
	var totalMinutes float64
	for _, r := range rows {
		stats.TotalEscalations++
		stats.ByReason[r.Reason]++
		if r.ResolvedAt != nil {
			resolved++
			totalMinutes += r.ResolvedAt.Sub(r.CreatedAt).Minutes()
		}
	}

	if resolved > 0 {
		stats.AvgResolutionMinutes = int(math.Round(totalMinutes / float64(resolved)))
	}
	if stats.TotalEscalations > 0 {
		pct := float64(resolved) / float64(stats.TotalEscalations) * 100
		stats.ResolvedPercentage = math.Round(pct*10) / 10
	}
	return stats, nil
}

// CountOverdue counts unresolved escalations created before cutoff, across
// all locations.
func (s *EscalationService) CountOverdue(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Escalation{}).
		Where("status <> ? AND created_at < ?", models.EscalationResolved, cutoff.UTC()).
		Count(&n).Error
	return n, err
}

func (s *EscalationService) scoped(ctx context.Context, locationID string, from, to time.Time) (*gorm.DB, error) {
	if locationID == "" {
		return nil, ErrLocationRequired
	}
	q := s.db.WithContext(ctx).Model(&models.Escalation{}).Where("location_id = ?", locationID)
	if !from.IsZero() {
		q = q.Where("created_at >= ?", from.UTC())
	}
	if !to.IsZero() {
		q = q.Where("created_at <= ?", to.UTC())
	}
	return q, nil
}
