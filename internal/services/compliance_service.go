package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/auma/compliance-gate/internal/compliance"
	"github.com/auma/compliance-gate/internal/logger"
	"github.com/auma/compliance-gate/internal/metrics"
	"github.com/auma/compliance-gate/internal/models"
	"github.com/auma/compliance-gate/internal/util"
)

// CheckContext identifies the loan and borrower a message belongs to.
type CheckContext struct {
	LoanID        string               `json:"loan_id"`
	LocationID    string               `json:"location_id"`
	BorrowerID    string               `json:"borrower_id,omitempty"`
	BorrowerName  string               `json:"borrower_name,omitempty"`
	Source        models.MessageSource `json:"source,omitempty"`
	SafeTopicHint bool                 `json:"safe_topic_hint,omitempty"`
}

// CheckResult is the verdict plus what the gate did about it.
type CheckResult struct {
	compliance.Verdict
	Escalation *models.Escalation `json:"escalation,omitempty"`
	// Degraded is set when the block could not be fully recorded.
	Degraded     bool  `json:"degraded,omitempty"`
	Notification *Task `json:"-"`
}

// Notifier delivers an escalation to its MLO.
type Notifier interface {
	Notify(ctx context.Context, esc *models.Escalation, mlo *models.MloContext) models.NotificationResult
}

// ComplianceDeps wires the compliance service.
type ComplianceDeps struct {
	Engine      *compliance.Engine
	Escalations *EscalationService
	Audit       *AuditService
	Mlos        MloLookup
	Notifier    Notifier
	Dispatcher  *Dispatcher
	Fallback    FallbackAlerter
	// NotifySync makes CheckMessage wait for the notification fan-out.
	NotifySync bool
}

// ComplianceService gates borrower messages and AI responses. Every blocked
// message ends up as an escalation, an audit entry and an MLO notification.
type ComplianceService struct {
	engine      *compliance.Engine
	escalations *EscalationService
	audit       *AuditService
	mlos        MloLookup
	notifier    Notifier
	dispatcher  *Dispatcher
	fallback    FallbackAlerter
	notifySync  bool
}

func NewComplianceService(d ComplianceDeps) *ComplianceService {
	if d.Dispatcher == nil {
		d.Dispatcher = NewDispatcher(context.Background())
	}
	return &ComplianceService{
		engine:      d.Engine,
		escalations: d.Escalations,
		audit:       d.Audit,
		mlos:        d.Mlos,
		notifier:    d.Notifier,
		dispatcher:  d.Dispatcher,
		fallback:    d.Fallback,
		notifySync:  d.NotifySync,
	}
}

// Policy returns the policy currently in force.
func (s *ComplianceService) Policy() *compliance.Policy {
	return s.engine.Classifier.Policy()
}

// CheckMessage classifies a borrower message. A blocked verdict is returned
// even when recording the escalation fails.
func (s *ComplianceService) CheckMessage(ctx context.Context, message string, cc CheckContext) *CheckResult {
	metrics.IncMessageChecked()

	v := s.engine.Check(ctx, message, compliance.Hint{SafeTopicHint: cc.SafeTopicHint})
	res := &CheckResult{Verdict: v}
	if !v.Blocked {
		return res
	}

	metrics.IncMessageBlocked(string(v.Reason))
	logger.ForLoan(cc.LocationID, cc.LoanID).WithFields(logrus.Fields{
		"reason":   v.Reason,
		"keywords": v.MatchedKeywords,
		"message":  util.Truncate(util.SanitizeForLog(message), 200),
	}).Warn("Borrower message blocked")

	in := EscalationInput{
		LoanID:          cc.LoanID,
		LocationID:      cc.LocationID,
		BorrowerID:      optional(cc.BorrowerID),
		Reason:          v.Reason,
		TriggerMessage:  message,
		MatchedKeywords: v.MatchedKeywords,
		Source:          cc.Source,
		AutoResponse:    v.SuggestedResponse,
	}
	details := map[string]interface{}{
		"reason":          v.Reason,
		"matchedKeywords": v.MatchedKeywords,
		"source":          cc.Source,
		"policyVersion":   s.Policy().Version,
		"message":         util.Truncate(message, 500),
	}

	esc, degraded := s.record(ctx, in, models.ActionSafeActEscalation, models.ActorAIAssistant, details)
	res.Escalation = esc
	res.Degraded = degraded
	if esc != nil {
		res.Notification = s.notify(ctx, esc, cc)
	}
	return res
}

// record persists the escalation and its audit entry. On failure the block
// still stands and the escalation, if it could be built, is returned unsaved.
func (s *ComplianceService) record(ctx context.Context, in EscalationInput, action string, actor models.Actor, details map[string]interface{}) (*models.Escalation, bool) {
	esc, err := s.escalations.NewEscalation(in)
	if err != nil {
		s.degrade(ctx, in, nil, err)
		return nil, true
	}
	if err := s.escalations.Insert(ctx, esc); err != nil {
		s.degrade(ctx, in, esc, err)
		return esc, true
	}

	details["escalationId"] = esc.ID
	if _, err := s.audit.Log(ctx, AuditEntry{
		LoanID:      esc.LoanID,
		LocationID:  esc.LocationID,
		ActionType:  action,
		PerformedBy: actor,
		Details:     details,
	}); err != nil {
		s.degrade(ctx, in, esc, err)
		return esc, true
	}
	return esc, false
}

func (s *ComplianceService) degrade(ctx context.Context, in EscalationInput, esc *models.Escalation, cause error) {
	metrics.IncDegraded()
	log := logger.ForLoan(in.LocationID, in.LoanID).WithError(cause).WithField("reason", in.Reason)
	log.Error("Compliance block could not be fully recorded")

	details := map[string]interface{}{
		"reason": in.Reason,
		"error":  cause.Error(),
	}
	if esc != nil {
		details["escalationId"] = esc.ID
	}
	if _, err := s.audit.Log(ctx, AuditEntry{
		LoanID:      in.LoanID,
		LocationID:  in.LocationID,
		ActionType:  models.ActionComplianceDegraded,
		PerformedBy: models.ActorAutomatedSystem,
		Details:     details,
	}); err != nil {
		log.WithField("audit_error", err.Error()).Error("Failed to audit degraded compliance block")
	}
}

func (s *ComplianceService) notify(ctx context.Context, esc *models.Escalation, cc CheckContext) *Task {
	log := logger.ForLoan(esc.LocationID, esc.LoanID).WithField("escalation_id", esc.ID)

	var mlo *models.MloContext
	if s.mlos != nil {
		var err error
		mlo, err = s.mlos.GetMloContextForLoan(ctx, esc.LocationID, esc.LoanID)
		if err != nil {
			log.WithError(err).Warn("MLO lookup failed")
			mlo = nil
		}
	}
	if mlo != nil && mlo.BorrowerName == "" {
		mlo.BorrowerName = cc.BorrowerName
	}
	if mlo == nil {
		log.Warn("No MLO assigned to loan")
	}

	task := s.dispatcher.Go(func(bg context.Context) models.NotificationResult {
		res := s.notifier.Notify(bg, esc, mlo)
		if res.AllFailed {
			s.alertFallback(bg, esc)
		}
		return res
	})

	if s.notifySync {
		if _, err := task.Wait(ctx); err != nil {
			log.WithError(err).Warn("Stopped waiting for MLO notification")
		}
	}
	return task
}

func (s *ComplianceService) alertFallback(ctx context.Context, esc *models.Escalation) {
	log := logger.ForLoan(esc.LocationID, esc.LoanID).WithField("escalation_id", esc.ID)
	if s.fallback == nil {
		log.Error("No notification channel reached the MLO and no fallback is configured")
		return
	}

	title := fmt.Sprintf("Compliance escalation %s could not reach an MLO", esc.ID)
	msg := fmt.Sprintf("Reason: %s\nLocation: %s\nLoan: %s\nRespond within %s.",
		esc.Reason.Label(), esc.LocationID, esc.LoanID, slaText())
	if err := s.fallback.Alert(ctx, title, msg); err != nil {
		log.WithError(err).Error("Fallback alert failed")
		return
	}

	if _, err := s.audit.Log(ctx, AuditEntry{
		LoanID:      esc.LoanID,
		LocationID:  esc.LocationID,
		ActionType:  models.ActionFallbackAlertSent,
		PerformedBy: models.ActorAutomatedSystem,
		Details:     map[string]interface{}{"escalationId": esc.ID, "reason": esc.Reason},
	}); err != nil {
		log.WithError(err).Error("Failed to audit fallback alert")
	}
}

// ValidateAIResponse checks an outbound AI response. Violations are audited
// but never escalated; the caller must regenerate or suppress the response.
func (s *ComplianceService) ValidateAIResponse(ctx context.Context, response string, cc CheckContext) compliance.ValidationResult {
	r := s.engine.Classifier.ValidateResponse(response)
	if r.Valid {
		return r
	}

	metrics.IncResponseViolation()
	log := logger.ForLoan(cc.LocationID, cc.LoanID).WithField("violations", r.Violations)
	log.Warn("AI response failed compliance validation")

	if _, err := s.audit.Log(ctx, AuditEntry{
		LoanID:      cc.LoanID,
		LocationID:  cc.LocationID,
		ActionType:  models.ActionAIResponseViolation,
		PerformedBy: models.ActorAIAssistant,
		Details: map[string]interface{}{
			"violations": r.Violations,
			"response":   util.Truncate(response, 500),
		},
	}); err != nil {
		log.WithError(err).Error("Failed to audit AI response violation")
	}
	return r
}

// GetComplianceStats summarizes escalations for a location.
func (s *ComplianceService) GetComplianceStats(ctx context.Context, locationID string, from, to time.Time) (EscalationStats, error) {
	return s.escalations.StatsFor(ctx, locationID, from, to)
}

// EscalateManually hands a loan to its MLO on request of a processor or the
// borrower. Unlike CheckMessage, failures are returned to the caller.
func (s *ComplianceService) EscalateManually(ctx context.Context, cc CheckContext, note string, by models.Actor) (*models.Escalation, error) {
	if by == "" {
		by = models.ActorHumanProcessor
	}
	esc, err := s.escalations.Create(ctx, EscalationInput{
		LoanID:         cc.LoanID,
		LocationID:     cc.LocationID,
		BorrowerID:     optional(cc.BorrowerID),
		Reason:         models.ReasonManualEscalation,
		TriggerMessage: note,
		Source:         cc.Source,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.audit.Log(ctx, AuditEntry{
		LoanID:      esc.LoanID,
		LocationID:  esc.LocationID,
		ActionType:  models.ActionManualEscalation,
		PerformedBy: by,
		Details:     map[string]interface{}{"escalationId": esc.ID, "note": util.Truncate(note, 500)},
	}); err != nil {
		return esc, fmt.Errorf("audit manual escalation: %w", err)
	}

	s.notify(ctx, esc, cc)
	return esc, nil
}

// AcknowledgeEscalation records that the MLO has seen an escalation.
func (s *ComplianceService) AcknowledgeEscalation(ctx context.Context, locationID, id, mloID string) (*models.Escalation, error) {
	esc, err := s.escalations.Acknowledge(ctx, locationID, id, mloID)
	if err != nil {
		return nil, err
	}
	s.auditTransition(ctx, esc, models.ActionEscalationAcknowledged, mloID, "")
	return esc, nil
}

// ResolveEscalation closes an escalation with the MLO's note.
func (s *ComplianceService) ResolveEscalation(ctx context.Context, locationID, id, mloID, note string) (*models.Escalation, error) {
	esc, err := s.escalations.Resolve(ctx, locationID, id, mloID, note)
	if err != nil {
		return nil, err
	}
	s.auditTransition(ctx, esc, models.ActionEscalationResolved, mloID, note)
	return esc, nil
}

func (s *ComplianceService) auditTransition(ctx context.Context, esc *models.Escalation, action, mloID, note string) {
	details := map[string]interface{}{"escalationId": esc.ID, "status": esc.Status}
	if mloID != "" {
		details["mloId"] = mloID
	}
	if note != "" {
		details["note"] = util.Truncate(note, 500)
	}
	if _, err := s.audit.Log(ctx, AuditEntry{
		LoanID:      esc.LoanID,
		LocationID:  esc.LocationID,
		ActionType:  action,
		PerformedBy: models.ActorMLO,
		Details:     details,
	}); err != nil {
		logger.ForLoan(esc.LocationID, esc.LoanID).WithError(err).Errorf("Failed to audit %s", action)
	}
}

// GetEscalation returns one escalation.
func (s *ComplianceService) GetEscalation(ctx context.Context, locationID, id string) (*models.Escalation, error) {
	return s.escalations.Get(ctx, locationID, id)
}

// ListEscalations lists escalations for a location.
func (s *ComplianceService) ListEscalations(ctx context.Context, f EscalationFilter) ([]models.Escalation, error) {
	return s.escalations.List(ctx, f)
}

// ListAudit lists audit entries for a location.
func (s *ComplianceService) ListAudit(ctx context.Context, f AuditFilter) ([]models.AuditLog, error) {
	return s.audit.List(ctx, f)
}

// CompliantResponse renders a safe reply for topic, personalised with the
// loan's MLO when one is assigned in locationID.
func (s *ComplianceService) CompliantResponse(ctx context.Context, locationID, topic, loanID string) (string, error) {
	var name, phone string
	if loanID != "" && s.mlos != nil {
		if locationID == "" {
			return "", ErrLocationRequired
		}
		mlo, err := s.mlos.GetMloContextForLoan(ctx, locationID, loanID)
		if err != nil && !errors.Is(err, ErrLoanNotFound) {
			return "", err
		}
		if mlo != nil {
			name, phone = mlo.Name, mlo.Phone
		}
	}
	return s.Policy().CompliantResponse(topic, name, phone)
}

// Wait joins outstanding notification tasks.
func (s *ComplianceService) Wait(ctx context.Context) error {
	return s.dispatcher.Wait(ctx)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
