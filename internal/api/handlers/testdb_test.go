package handlers

import (
	"context"
	"fmt"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/auma/compliance-gate/internal/compliance"
	"github.com/auma/compliance-gate/internal/models"
	"github.com/auma/compliance-gate/internal/services"
)

// OpenTestDB creates an in-memory SQLite database unique per test with the
// compliance tables migrated.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.Escalation{}, &models.AuditLog{}, &models.MloUser{}, &models.Loan{}))
	return db
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, *models.Escalation, *models.MloContext) models.NotificationResult {
	return models.NotificationResult{}
}

type handlerFixture struct {
	db     *gorm.DB
	svc    *services.ComplianceService
	router *gin.Engine
	loan   *models.Loan
}

// newHandlerFixture wires every compliance handler against a fresh database
// seeded with one MLO and one loan in loc-1.
func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := OpenTestDB(t)
	ctx := context.Background()

	mlos := services.NewMloService(db)
	mlo := &models.MloUser{LocationID: "loc-1", Name: "Jane Smith", Phone: "+15551234567", Email: "jane@example.com"}
	require.NoError(t, mlos.CreateMlo(ctx, mlo))
	loan := &models.Loan{LocationID: "loc-1", LoanNumber: "LN-1001", BorrowerName: "John Doe", AssignedMloID: &mlo.ID}
	require.NoError(t, mlos.CreateLoan(ctx, loan))

	svc := services.NewComplianceService(services.ComplianceDeps{
		Engine:      compliance.NewEngine(compliance.NewClassifier(compliance.DefaultPolicy()), nil),
		Escalations: services.NewEscalationService(db),
		Audit:       services.NewAuditService(db),
		Mlos:        mlos,
		Notifier:    nopNotifier{},
		NotifySync:  true,
	})

	r := gin.New()
	ch := NewComplianceHandler(svc)
	eh := NewEscalationHandler(svc)
	ah := NewAuditHandler(svc)
	r.POST("/compliance/check", ch.Check)
	r.POST("/compliance/validate", ch.Validate)
	r.GET("/compliance/stats", ch.Stats)
	r.GET("/compliance/responses/:topic", ch.CompliantResponse)
	r.GET("/escalations", eh.List)
	r.POST("/escalations", eh.Create)
	r.GET("/escalations/:id", eh.Get)
	r.POST("/escalations/:id/acknowledge", eh.Acknowledge)
	r.POST("/escalations/:id/resolve", eh.Resolve)
	r.GET("/audit", ah.List)

	return &handlerFixture{db: db, svc: svc, router: r, loan: loan}
}
