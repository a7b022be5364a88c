package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/auma/compliance-gate/internal/version"
)

// HealthInfo supplies the dynamic parts of the health report.
type HealthInfo struct {
	DB            *gorm.DB
	PolicyVersion func() string
	// SecondaryState reports the secondary classifier breaker, if configured.
	SecondaryState func() string
}

// NewHealthHandler responds with service metadata for uptime checks. A
// database that cannot be reached turns the response into a 503.
func NewHealthHandler(info HealthInfo) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"status":     "ok",
			"service":    version.Name,
			"version":    version.Version,
			"git_commit": version.GitCommit,
			"build_time": version.BuildTime,
		}
		if info.PolicyVersion != nil {
			body["policy_version"] = info.PolicyVersion()
		}
		if info.SecondaryState != nil {
			body["secondary_check"] = info.SecondaryState()
		}

		code := http.StatusOK
		if info.DB != nil {
			if sqlDB, err := info.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
				body["status"] = "degraded"
				body["database"] = "unreachable"
				code = http.StatusServiceUnavailable
			}
		}
		c.JSON(code, body)
	}
}
