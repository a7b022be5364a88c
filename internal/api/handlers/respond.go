package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/auma/compliance-gate/internal/api/middleware"
	"github.com/auma/compliance-gate/internal/services"
)

// LocationHeader carries the tenant id when it is not in the query or body.
const LocationHeader = "X-Location-ID"

const maxListLimit = 500

// respondError maps service errors onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEscalationNotFound), errors.Is(err, services.ErrLoanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrEscalationResolved):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrLocationRequired),
		errors.Is(err, services.ErrLoanRequired),
		errors.Is(err, services.ErrInvalidReason):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		middleware.GetRequestLogger(c).WithError(err).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// locationID resolves the tenant from the body value, the query or the header.
func locationID(c *gin.Context, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	if q := c.Query("location_id"); q != "" {
		return q
	}
	return c.GetHeader(LocationHeader)
}

// parseTime accepts RFC3339 or a bare date. An empty value is the zero time.
func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", v)
	}
	return t, nil
}

func parseRange(c *gin.Context) (from, to time.Time, err error) {
	if from, err = parseTime(c.Query("from")); err != nil {
		return
	}
	if to, err = parseTime(c.Query("to")); err != nil {
		return
	}
	// A bare end date covers the whole day.
	if v := c.Query("to"); len(v) == len("2006-01-02") {
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	return
}

func parseLimit(c *gin.Context) (int, error) {
	v := c.Query("limit")
	if v == "" {
		return 100, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid limit %q", v)
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, nil
}
