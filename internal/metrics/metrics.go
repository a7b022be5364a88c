package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	messagesCheckedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "compliance_messages_checked_total",
		Help: "Total number of borrower messages classified",
	})
	messagesBlockedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "compliance_messages_blocked_total",
		Help: "Total number of borrower messages blocked, by reason",
	}, []string{"reason"})
	responseViolationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "compliance_ai_response_violations_total",
		Help: "Total number of AI responses that failed validation",
	})
	notificationAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "compliance_notification_attempts_total",
		Help: "MLO notification attempts by channel and outcome",
	}, []string{"channel", "outcome"})
	notificationAllFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "compliance_notification_all_failed_total",
		Help: "Fan-outs in which no channel reached the MLO",
	})
	degradedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "compliance_degraded_total",
		Help: "Blocked messages whose escalation could not be persisted",
	})
	secondaryFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "compliance_secondary_check_failures_total",
		Help: "Secondary classifier calls that failed or returned unusable output",
	})
	overduePending = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "compliance_escalations_overdue",
		Help: "Unresolved escalations older than the response SLA",
	})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry prometheus.Registerer) {
	registry.MustRegister(
		messagesCheckedTotal,
		messagesBlockedTotal,
		responseViolationsTotal,
		notificationAttemptsTotal,
		notificationAllFailedTotal,
		degradedTotal,
		secondaryFailuresTotal,
		overduePending,
	)
}

// IncMessageChecked increments the classified messages counter.
func IncMessageChecked() { messagesCheckedTotal.Inc() }

// IncMessageBlocked increments the blocked counter for reason.
func IncMessageBlocked(reason string) { messagesBlockedTotal.WithLabelValues(reason).Inc() }

// IncResponseViolation increments the failed AI response counter.
func IncResponseViolation() { responseViolationsTotal.Inc() }

// ObserveNotification records one channel attempt. outcome is success, failure or skipped.
func ObserveNotification(channel, outcome string) {
	notificationAttemptsTotal.WithLabelValues(channel, outcome).Inc()
}

// IncNotificationAllFailed increments the all-channels-failed counter.
func IncNotificationAllFailed() { notificationAllFailedTotal.Inc() }

// IncDegraded increments the degraded-mode counter.
func IncDegraded() { degradedTotal.Inc() }

// IncSecondaryFailure increments the secondary check failure counter.
func IncSecondaryFailure() { secondaryFailuresTotal.Inc() }

// SetOverdue sets the overdue escalation gauge.
func SetOverdue(n int) { overduePending.Set(float64(n)) }
