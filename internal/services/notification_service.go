package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"time"

	"github.com/containrrr/shoutrrr"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/auma/compliance-gate/internal/logger"
	"github.com/auma/compliance-gate/internal/metrics"
	"github.com/auma/compliance-gate/internal/models"
	"github.com/auma/compliance-gate/internal/util"
)

// TaskCreator creates a follow-up task in the CRM.
type TaskCreator interface {
	CreateTask(ctx context.Context, locationID string, task models.CRMTask) (string, error)
}

// SMSSender delivers a text message.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// EmailSender delivers an HTML email.
type EmailSender interface {
	SendEmail(to, subject, htmlBody string) error
}

// NotificationTransports are the channel adapters. A nil field disables
// that channel; do not assign a typed nil pointer.
type NotificationTransports struct {
	Tasks TaskCreator
	SMS   SMSSender
	Email EmailSender
}

var errChannelSkipped = errors.New("channel skipped")

func skipped(reason string) error {
	return fmt.Errorf("%w: %s", errChannelSkipped, reason)
}

// NotificationService fans an escalation out to the assigned MLO over every
// channel at once. One channel failing never affects the others.
type NotificationService struct {
	transports NotificationTransports
	audit      *AuditService
	now        func() time.Time
}

func NewNotificationService(t NotificationTransports, audit *AuditService) *NotificationService {
	return &NotificationService{transports: t, audit: audit, now: time.Now}
}

// Notify sends the escalation to mlo and records one audit entry describing
// every channel's outcome. It never returns an error.
func (s *NotificationService) Notify(ctx context.Context, esc *models.Escalation, mlo *models.MloContext) models.NotificationResult {
	var res models.NotificationResult

	var g errgroup.Group
	for i, ch := range models.NotificationChannels {
		g.Go(func() error {
			res.Attempts[i] = s.attempt(ctx, ch, esc, mlo)
			return nil
		})
	}
	_ = g.Wait()

	res.AllFailed = true
	for _, a := range res.Attempts {
		if a.Success {
			res.AllFailed = false
			break
		}
	}
	if res.AllFailed {
		metrics.IncNotificationAllFailed()
	}

	s.record(ctx, esc, mlo, res)
	return res
}

func (s *NotificationService) attempt(ctx context.Context, ch models.NotificationChannel, esc *models.Escalation, mlo *models.MloContext) (a models.NotificationAttempt) {
	a.Channel = ch
	log := logger.ForLoan(esc.LocationID, esc.LoanID).WithFields(logrus.Fields{
		"channel":       ch,
		"escalation_id": esc.ID,
	})

	defer func() {
		if r := recover(); r != nil {
			a = models.NotificationAttempt{Channel: ch, ErrorMessage: fmt.Sprintf("panic: %v", r)}
			log.WithField("panic", fmt.Sprintf("%v", r)).Error("Notification channel panicked")
		}
		metrics.ObserveNotification(string(ch), outcome(a))
	}()

	err := s.send(ctx, ch, esc, mlo)
	switch {
	case errors.Is(err, errChannelSkipped):
		a.Skipped = true
		a.ErrorMessage = err.Error()
		log.WithField("detail", err.Error()).Warn("Notification channel skipped")
	case err != nil:
		a.ErrorMessage = err.Error()
		log.WithError(err).Error("Notification channel failed")
	default:
		a.Success = true
		log.Info("MLO notified")
	}
	return a
}

func (s *NotificationService) send(ctx context.Context, ch models.NotificationChannel, esc *models.Escalation, mlo *models.MloContext) error {
	if mlo == nil {
		return skipped("no assigned mlo")
	}

	switch ch {
	case models.ChannelCRMTask:
		if s.transports.Tasks == nil {
			return skipped("crm not configured")
		}
		assignee := mlo.CRMUserID
		if assignee == "" {
			assignee = mlo.UserID
		}
		if assignee == "" {
			return skipped("mlo has no user id")
		}
		_, err := s.transports.Tasks.CreateTask(ctx, esc.LocationID, models.CRMTask{
			ContactID:   mlo.ContactID,
			AssignedTo:  assignee,
			Title:       fmt.Sprintf("[Compliance] %s - %s", esc.Reason.Label(), borrowerName(mlo)),
			Description: taskDescription(esc, mlo),
			DueDate:     s.now().Add(models.ResponseSLA).UTC(),
		})
		return err

	case models.ChannelSMS:
		if s.transports.SMS == nil {
			return skipped("sms not configured")
		}
		if mlo.Phone == "" {
			return skipped("mlo has no phone")
		}
		return s.transports.SMS.SendSMS(ctx, mlo.Phone, smsMessage(esc, mlo))

	case models.ChannelEmail:
		if s.transports.Email == nil {
			return skipped("email not configured")
		}
		if mlo.Email == "" {
			return skipped("mlo has no email")
		}
		body, err := emailBody(esc, mlo)
		if err != nil {
			return err
		}
		subject := fmt.Sprintf("[Compliance] Action Required: %s - %s", borrowerName(mlo), esc.Reason.Label())
		return s.transports.Email.SendEmail(mlo.Email, subject, body)
	}
	return fmt.Errorf("unknown channel %q", ch)
}

func (s *NotificationService) record(ctx context.Context, esc *models.Escalation, mlo *models.MloContext, res models.NotificationResult) {
	if s.audit == nil {
		return
	}
	channels := make(map[string]string, len(res.Attempts))
	for _, a := range res.Attempts {
		channels[string(a.Channel)] = outcome(a)
	}
	details := map[string]interface{}{
		"reason":       esc.Reason,
		"escalationId": esc.ID,
		"channels":     channels,
		"allFailed":    res.AllFailed,
	}
	if mlo != nil {
		details["mloId"] = mlo.UserID
	}

	if _, err := s.audit.Log(ctx, AuditEntry{
		LoanID:      esc.LoanID,
		LocationID:  esc.LocationID,
		ActionType:  models.ActionMloNotificationSent,
		PerformedBy: models.ActorAutomatedSystem,
		Details:     details,
	}); err != nil {
		logger.ForLoan(esc.LocationID, esc.LoanID).WithError(err).Error("Failed to audit MLO notification")
	}
}

func outcome(a models.NotificationAttempt) string {
	switch {
	case a.Success:
		return "success"
	case a.Skipped:
		return "skipped"
	default:
		return "failure"
	}
}

func borrowerName(mlo *models.MloContext) string {
	if mlo.BorrowerName == "" {
		return "Borrower"
	}
	return mlo.BorrowerName
}

func slaText() string {
	return fmt.Sprintf("%d hours", int(models.ResponseSLA.Hours()))
}

func smsMessage(esc *models.Escalation, mlo *models.MloContext) string {
	return fmt.Sprintf("Compliance Alert: %s\n\nBorrower: %s\nLoan: %s\n\nPlease review in the CRM within %s.",
		esc.Reason.Label(), borrowerName(mlo), mlo.LoanNumber, slaText())
}

func taskDescription(esc *models.Escalation, mlo *models.MloContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Borrower:** %s\n", borrowerName(mlo))
	fmt.Fprintf(&b, "**Loan Number:** %s\n", mlo.LoanNumber)
	fmt.Fprintf(&b, "**Reason:** %s\n\n", esc.Reason.Label())
	b.WriteString("**Details:**\n")
	fmt.Fprintf(&b, "- Message: %s\n", util.Truncate(esc.TriggerMessage, 500))
	if kw := esc.Keywords(); len(kw) > 0 {
		fmt.Fprintf(&b, "- Flagged keywords: %s\n", strings.Join(kw, ", "))
	}
	fmt.Fprintf(&b, "- Response required: within %s\n", slaText())
	b.WriteString("\n---\nGenerated by the compliance gate")
	return b.String()
}

var emailTemplate = template.Must(template.New("escalation").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1 style="background: #1976d2; color: white; padding: 20px; text-align: center;">Compliance Alert</h1>
    <div style="background: #fff3cd; border: 1px solid #ffc107; padding: 15px; margin: 15px 0;">
      <strong>Action Required:</strong> {{.Reason}}
    </div>
    <div style="background: white; padding: 15px; border: 1px solid #ddd;">
      <p><strong>Borrower:</strong> {{.Borrower}}</p>
      <p><strong>Loan Number:</strong> {{.LoanNumber}}</p>
      <p><strong>Response Required:</strong> within {{.SLA}}</p>
    </div>
    <div style="background: white; padding: 15px; border: 1px solid #ddd; margin-top: 15px;">
      <h3>Borrower message</h3>
      <p>{{.Message}}</p>
      {{- if .Keywords}}
      <p><strong>Flagged keywords:</strong> {{.Keywords}}</p>
      {{- end}}
    </div>
    <p style="text-align: center; color: #666; font-size: 12px;">Generated by the compliance gate</p>
  </div>
</body>
</html>`))

func emailBody(esc *models.Escalation, mlo *models.MloContext) (string, error) {
	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, map[string]string{
		"Reason":     esc.Reason.Label(),
		"Borrower":   borrowerName(mlo),
		"LoanNumber": mlo.LoanNumber,
		"SLA":        slaText(),
		"Message":    util.Truncate(esc.TriggerMessage, 1000),
		"Keywords":   strings.Join(esc.Keywords(), ", "),
	})
	if err != nil {
		return "", fmt.Errorf("render escalation email: %w", err)
	}
	return buf.String(), nil
}

// FallbackAlerter is the last-resort operator alert used when no channel
// reached the MLO.
type FallbackAlerter interface {
	Alert(ctx context.Context, title, message string) error
}

var discordWebhookRegex = regexp.MustCompile(`^https://discord(?:app)?\.com/api/webhooks/(\d+)/([a-zA-Z0-9_-]+)`)

// normalizeURL turns a raw Discord webhook URL into a shoutrrr service URL.
func normalizeURL(rawURL string) string {
	if m := discordWebhookRegex.FindStringSubmatch(rawURL); len(m) == 3 {
		return fmt.Sprintf("discord://%s@%s", m[2], m[1])
	}
	return rawURL
}

// ShoutrrrAlerter posts a plain-text alert to every configured shoutrrr URL.
type ShoutrrrAlerter struct {
	urls []string
	send func(url, message string) error
}

func NewShoutrrrAlerter(urls []string) *ShoutrrrAlerter {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, normalizeURL(u))
		}
	}
	return &ShoutrrrAlerter{urls: out, send: func(url, message string) error {
		return shoutrrr.Send(url, message)
	}}
}

// Configured reports whether any destination is set.
func (a *ShoutrrrAlerter) Configured() bool { return len(a.urls) > 0 }

// Alert sends to every URL and joins the failures.
func (a *ShoutrrrAlerter) Alert(ctx context.Context, title, message string) error {
	msg := fmt.Sprintf("%s\n\n%s", title, message)
	var errs []error
	for i, u := range a.urls {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.send(u, msg); err != nil {
			errs = append(errs, fmt.Errorf("fallback destination %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
