package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auma/compliance-gate/internal/models"
)

type fakeTasks struct {
	mu    sync.Mutex
	tasks []models.CRMTask
	err   error
	panic bool
}

func (f *fakeTasks) CreateTask(_ context.Context, _ string, task models.CRMTask) (string, error) {
	if f.panic {
		panic("crm exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	return "task-1", f.err
}

type fakeSMS struct {
	mu       sync.Mutex
	to       []string
	messages []string
	err      error
}

func (f *fakeSMS) SendSMS(_ context.Context, to, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.to = append(f.to, to)
	f.messages = append(f.messages, message)
	return f.err
}

type fakeEmail struct {
	mu       sync.Mutex
	to       []string
	subjects []string
	bodies   []string
	err      error
}

func (f *fakeEmail) SendEmail(to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.to = append(f.to, to)
	f.subjects = append(f.subjects, subject)
	f.bodies = append(f.bodies, body)
	return f.err
}

func testMlo() *models.MloContext {
	return &models.MloContext{
		UserID:       "mlo-1",
		CRMUserID:    "crm-user-1",
		Name:         "Jane Smith",
		Email:        "jane@example.com",
		Phone:        "+15551234567",
		LoanNumber:   "LN-1001",
		BorrowerName: "John Doe",
		ContactID:    "contact-1",
	}
}

func testEscalation() *models.Escalation {
	esc := &models.Escalation{
		ID:             "esc-1",
		LoanID:         "loan-1",
		LocationID:     "loc-1",
		Reason:         models.ReasonRateInquiry,
		TriggerMessage: "What's my rate?",
	}
	esc.SetKeywords([]string{"rate"})
	return esc
}

func notificationAudit(t *testing.T, audit *AuditService) []models.AuditLog {
	t.Helper()
	rows, err := audit.List(context.Background(), AuditFilter{LocationID: "loc-1", ActionType: models.ActionMloNotificationSent})
	require.NoError(t, err)
	return rows
}

func TestNotificationService_AllChannelsSucceed(t *testing.T) {
	audit := NewAuditService(setupComplianceTestDB(t))
	tasks, sms, email := &fakeTasks{}, &fakeSMS{}, &fakeEmail{}
	svc := NewNotificationService(NotificationTransports{Tasks: tasks, SMS: sms, Email: email}, audit)
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	res := svc.Notify(context.Background(), testEscalation(), testMlo())

	assert.False(t, res.AllFailed)
	for i, ch := range models.NotificationChannels {
		assert.Equal(t, ch, res.Attempts[i].Channel)
		assert.True(t, res.Attempts[i].Success, ch)
	}

	require.Len(t, tasks.tasks, 1)
	task := tasks.tasks[0]
	assert.Equal(t, "crm-user-1", task.AssignedTo)
	assert.Equal(t, "contact-1", task.ContactID)
	assert.Equal(t, "[Compliance] Rate Inquiry - John Doe", task.Title)
	assert.True(t, fixed.Add(2*time.Hour).Equal(task.DueDate))
	assert.Contains(t, task.Description, "LN-1001")

	require.Len(t, sms.messages, 1)
	assert.Equal(t, "+15551234567", sms.to[0])
	assert.True(t, strings.HasSuffix(sms.messages[0], "Please review in the CRM within 2 hours."))

	require.Len(t, email.subjects, 1)
	assert.Equal(t, "[Compliance] Action Required: John Doe - Rate Inquiry", email.subjects[0])
	assert.Contains(t, email.bodies[0], "within 2 hours")

	rows := notificationAudit(t, audit)
	require.Len(t, rows, 1)
	details, err := DecodeDetails(rows[0])
	require.NoError(t, err)
	assert.Equal(t, "esc-1", details["escalationId"])
	assert.Equal(t, false, details["allFailed"])
	assert.Equal(t, "mlo-1", details["mloId"])
}

func TestNotificationService_SMSFailureIsolated(t *testing.T) {
	audit := NewAuditService(setupComplianceTestDB(t))
	tasks, email := &fakeTasks{}, &fakeEmail{}
	sms := &fakeSMS{err: errors.New("sms provider down")}
	svc := NewNotificationService(NotificationTransports{Tasks: tasks, SMS: sms, Email: email}, audit)

	res := svc.Notify(context.Background(), testEscalation(), testMlo())

	assert.False(t, res.AllFailed)
	assert.True(t, res.Attempt(models.ChannelCRMTask).Success)
	assert.True(t, res.Attempt(models.ChannelEmail).Success)
	smsAttempt := res.Attempt(models.ChannelSMS)
	assert.False(t, smsAttempt.Success)
	assert.Equal(t, "sms provider down", smsAttempt.ErrorMessage)

	rows := notificationAudit(t, audit)
	require.Len(t, rows, 1)
	details, err := DecodeDetails(rows[0])
	require.NoError(t, err)
	channels := details["channels"].(map[string]interface{})
	assert.Equal(t, "failure", channels["sms"])
	assert.Equal(t, "success", channels["crm_task"])
}

func TestNotificationService_PanicIsolated(t *testing.T) {
	audit := NewAuditService(setupComplianceTestDB(t))
	svc := NewNotificationService(NotificationTransports{
		Tasks: &fakeTasks{panic: true},
		SMS:   &fakeSMS{},
		Email: &fakeEmail{},
	}, audit)

	res := svc.Notify(context.Background(), testEscalation(), testMlo())

	crm := res.Attempt(models.ChannelCRMTask)
	assert.False(t, crm.Success)
	assert.Contains(t, crm.ErrorMessage, "crm exploded")
	assert.True(t, res.Attempt(models.ChannelSMS).Success)
	assert.True(t, res.Attempt(models.ChannelEmail).Success)
	assert.Len(t, notificationAudit(t, audit), 1)
}

func TestNotificationService_SkipsMissingContactDetails(t *testing.T) {
	audit := NewAuditService(setupComplianceTestDB(t))
	sms, email := &fakeSMS{}, &fakeEmail{}
	svc := NewNotificationService(NotificationTransports{Tasks: &fakeTasks{}, SMS: sms, Email: email}, audit)

	mlo := testMlo()
	mlo.Phone = ""
	mlo.Email = ""
	res := svc.Notify(context.Background(), testEscalation(), mlo)

	assert.False(t, res.AllFailed)
	assert.True(t, res.Attempt(models.ChannelSMS).Skipped)
	assert.True(t, res.Attempt(models.ChannelEmail).Skipped)
	assert.Empty(t, sms.messages)
	assert.Empty(t, email.subjects)
}

func TestNotificationService_AllFailed(t *testing.T) {
	audit := NewAuditService(setupComplianceTestDB(t))
	svc := NewNotificationService(NotificationTransports{
		Tasks: &fakeTasks{err: errors.New("crm 500")},
		SMS:   &fakeSMS{err: errors.New("sms 500")},
		Email: &fakeEmail{err: errors.New("smtp refused")},
	}, audit)

	res := svc.Notify(context.Background(), testEscalation(), testMlo())
	assert.True(t, res.AllFailed)

	rows := notificationAudit(t, audit)
	require.Len(t, rows, 1)
	details, err := DecodeDetails(rows[0])
	require.NoError(t, err)
	assert.Equal(t, true, details["allFailed"])
}

func TestNotificationService_NoMloSkipsEverything(t *testing.T) {
	audit := NewAuditService(setupComplianceTestDB(t))
	svc := NewNotificationService(NotificationTransports{Tasks: &fakeTasks{}, SMS: &fakeSMS{}, Email: &fakeEmail{}}, audit)

	res := svc.Notify(context.Background(), testEscalation(), nil)

	assert.True(t, res.AllFailed)
	for _, a := range res.Attempts {
		assert.True(t, a.Skipped, a.Channel)
	}
	assert.Len(t, notificationAudit(t, audit), 1)
}

func TestNotificationService_UnconfiguredTransports(t *testing.T) {
	svc := NewNotificationService(NotificationTransports{}, nil)

	res := svc.Notify(context.Background(), testEscalation(), testMlo())
	assert.True(t, res.AllFailed)
	assert.Contains(t, res.Attempt(models.ChannelCRMTask).ErrorMessage, "crm not configured")
}

func TestEmailBody_EscapesBorrowerText(t *testing.T) {
	esc := testEscalation()
	esc.TriggerMessage = `<script>alert("x")</script>`

	body, err := emailBody(esc, testMlo())
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "discord://tok-en@123", normalizeURL("https://discord.com/api/webhooks/123/tok-en"))
	assert.Equal(t, "slack://a/b/c", normalizeURL("slack://a/b/c"))
}

func TestShoutrrrAlerter(t *testing.T) {
	a := NewShoutrrrAlerter([]string{" generic://one ", "", "generic://two"})
	require.True(t, a.Configured())

	var sent []string
	a.send = func(url, message string) error {
		sent = append(sent, url)
		if url == "generic://two" {
			return errors.New("unreachable")
		}
		assert.Equal(t, "title\n\nbody", message)
		return nil
	}

	err := a.Alert(context.Background(), "title", "body")
	assert.ErrorContains(t, err, "unreachable")
	assert.Equal(t, []string{"generic://one", "generic://two"}, sent)

	assert.False(t, NewShoutrrrAlerter(nil).Configured())
}
