package models

import "time"

type NotificationChannel string

const (
	ChannelCRMTask NotificationChannel = "crm_task"
	ChannelSMS     NotificationChannel = "sms"
	ChannelEmail   NotificationChannel = "email"
)

// NotificationChannels is the fixed fan-out order.
var NotificationChannels = [3]NotificationChannel{ChannelCRMTask, ChannelSMS, ChannelEmail}

// NotificationAttempt is the outcome of one channel in one fan-out.
type NotificationAttempt struct {
	Channel      NotificationChannel `json:"channel"`
	Success      bool                `json:"success"`
	Skipped      bool                `json:"skipped,omitempty"`
	ErrorMessage string              `json:"error,omitempty"`
}

// NotificationResult always carries one attempt per channel.
type NotificationResult struct {
	Attempts  [3]NotificationAttempt `json:"attempts"`
	AllFailed bool                   `json:"all_failed"`
}

// Attempt returns the recorded attempt for ch.
func (r NotificationResult) Attempt(ch NotificationChannel) NotificationAttempt {
	for _, a := range r.Attempts {
		if a.Channel == ch {
			return a
		}
	}
	return NotificationAttempt{Channel: ch}
}

// CRMTask is the follow-up task created for the MLO in the CRM.
type CRMTask struct {
	ContactID   string    `json:"contactId,omitempty"`
	AssignedTo  string    `json:"assignedTo"`
	Title       string    `json:"title"`
	Description string    `json:"body"`
	DueDate     time.Time `json:"dueDate"`
}
