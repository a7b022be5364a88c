package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/auma/compliance-gate/internal/api/handlers"
	"github.com/auma/compliance-gate/internal/api/routes"
	"github.com/auma/compliance-gate/internal/compliance"
	"github.com/auma/compliance-gate/internal/config"
	"github.com/auma/compliance-gate/internal/crm"
	"github.com/auma/compliance-gate/internal/database"
	"github.com/auma/compliance-gate/internal/llm"
	"github.com/auma/compliance-gate/internal/logger"
	"github.com/auma/compliance-gate/internal/metrics"
	"github.com/auma/compliance-gate/internal/server"
	"github.com/auma/compliance-gate/internal/services"
	"github.com/auma/compliance-gate/internal/sms"
	"github.com/auma/compliance-gate/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Setup logging with rotation
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		log.Fatalf("create log dir: %v", err)
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, "compliance.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	defer func() { _ = rotator.Close() }()

	// Log to both stdout and file
	mw := io.MultiWriter(os.Stdout, rotator)
	log.SetOutput(mw)
	logger.Init(cfg.Debug, mw)

	logger.Log().WithField("version", version.Full()).Infof("Starting %s", version.Name)

	db, err := database.Connect(cfg.DatabaseDSN)
	if err != nil {
		logger.Log().WithError(err).Fatal("Connect database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Log().WithError(err).Fatal("Migrate database")
	}

	policy, err := compliance.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		logger.Log().WithError(err).Fatal("Load compliance policy")
	}
	classifier := compliance.NewClassifier(policy)
	logger.Log().WithField("policy_version", policy.Version).Info("Compliance policy loaded")

	health := handlers.HealthInfo{
		DB:            db,
		PolicyVersion: func() string { return classifier.Policy().Version },
	}

	var secondary *compliance.SecondaryChecker
	if cfg.LLM.BaseURL != "" {
		mode, err := compliance.ParseFailMode(cfg.SecondaryFailMode)
		if err != nil {
			logger.Log().WithError(err).Fatal("Invalid secondary fail mode")
		}
		client, err := llm.NewClient(llm.Config{
			BaseURL:           cfg.LLM.BaseURL,
			APIKey:            cfg.LLM.APIKey,
			Model:             cfg.LLM.Model,
			Timeout:           cfg.LLM.Timeout,
			RequestsPerSecond: cfg.LLM.RequestsPerSecond,
		})
		if err != nil {
			logger.Log().WithError(err).Fatal("Configure LLM client")
		}
		secondary = compliance.NewSecondaryChecker(client, mode)
		health.SecondaryState = func() string { return client.State().String() }
		logger.Log().WithFields(map[string]interface{}{"model": cfg.LLM.Model, "fail_mode": mode}).Info("Secondary compliance check enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.PolicyWatch && cfg.PolicyPath != "" {
		watcher := compliance.NewPolicyWatcher(cfg.PolicyPath, classifier)
		watcher.OnReload(func(p *compliance.Policy) {
			logger.Log().WithField("policy_version", p.Version).Info("Compliance policy reloaded")
		})
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Log().WithError(err).Error("Policy watcher stopped")
			}
		}()
	}

	// Transports stay nil interfaces when unconfigured so the channel is skipped.
	var transports services.NotificationTransports
	if cfg.CRM.Token != "" {
		transports.Tasks = crm.NewClient(cfg.CRM.BaseURL, cfg.CRM.APIVersion, crm.StaticToken(cfg.CRM.Token))
	}
	if cfg.SMS.APIKey != "" && cfg.SMS.Sender != "" {
		transports.SMS = sms.NewClient(cfg.SMS.BaseURL, cfg.SMS.APIKey, cfg.SMS.Sender)
	}
	if mail := services.NewMailService(cfg.SMTP); mail.IsConfigured() {
		transports.Email = mail
	}

	audit := services.NewAuditService(db)
	escalations := services.NewEscalationService(db)
	deps := services.ComplianceDeps{
		Engine:      compliance.NewEngine(classifier, secondary),
		Escalations: escalations,
		Audit:       audit,
		Mlos:        services.NewMloService(db),
		Notifier:    services.NewNotificationService(transports, audit),
		Dispatcher:  services.NewDispatcher(ctx),
		NotifySync:  cfg.NotifySync,
	}
	if alerter := services.NewShoutrrrAlerter(cfg.Fallback); alerter.Configured() {
		deps.Fallback = alerter
	}
	svc := services.NewComplianceService(deps)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(registry)

	monitor := services.NewSLAMonitor(escalations)
	if err := monitor.Start(cfg.SLACheckSchedule); err != nil {
		logger.Log().WithError(err).Fatal("Start SLA monitor")
	}

	srv := server.New(cfg, routes.Deps{
		Compliance: svc,
		Health:     health,
		APIKey:     cfg.APIKey,
		Gatherer:   registry,
	})

	logger.Log().WithField("port", cfg.HTTPPort).Info("Listening")
	if err := srv.Run(ctx); err != nil {
		logger.Log().WithError(err).Error("Server error")
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := svc.Wait(waitCtx); err != nil {
		logger.Log().WithError(err).Warn("Pending notifications did not finish before shutdown")
	}
	monitor.Stop()
	logger.Log().Info("Shutdown complete")
}
