package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/auma/compliance-gate/internal/logger"
	"github.com/auma/compliance-gate/internal/metrics"
	"github.com/auma/compliance-gate/internal/models"
)

// SLAMonitor periodically counts escalations that have gone unresolved past
// the response window and exposes the count as a gauge.
type SLAMonitor struct {
	escalations *EscalationService
	cron        *cron.Cron
	now         func() time.Time
}

func NewSLAMonitor(escalations *EscalationService) *SLAMonitor {
	return &SLAMonitor{escalations: escalations, cron: cron.New(), now: time.Now}
}

// Start schedules the check using a standard cron spec or descriptor such as
// "@every 5m" and runs it once immediately.
func (m *SLAMonitor) Start(spec string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return fmt.Errorf("invalid sla schedule %q: %w", spec, err)
	}
	m.cron.Schedule(schedule, cron.FuncJob(func() { _, _ = m.Check(context.Background()) }))
	m.cron.Start()
	_, _ = m.Check(context.Background())
	return nil
}

// Stop halts scheduling and waits for a running check.
func (m *SLAMonitor) Stop() {
	<-m.cron.Stop().Done()
}

// Check updates the overdue gauge and returns the count.
func (m *SLAMonitor) Check(ctx context.Context) (int64, error) {
	cutoff := m.now().Add(-models.ResponseSLA)
	n, err := m.escalations.CountOverdue(ctx, cutoff)
	if err != nil {
		logger.Log().WithError(err).Error("SLA check failed")
		return 0, err
	}
	metrics.SetOverdue(int(n))
	if n > 0 {
		logger.Log().WithField("overdue", n).Warn("Escalations past response SLA")
	}
	return n, nil
}
