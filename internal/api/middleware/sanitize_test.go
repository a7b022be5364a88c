package middleware

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer secret")
	h.Set(APIKeyHeader, "secret")
	h.Set("X-Location-ID", "loc-1\nforged")
	h.Set("User-Agent", strings.Repeat("a", 300))

	out := SanitizeHeaders(h)
	assert.Equal(t, []string{"<redacted>"}, out["Authorization"])
	assert.Equal(t, []string{"<redacted>"}, out[APIKeyHeader])
	assert.Equal(t, []string{"loc-1 forged"}, out["X-Location-Id"])
	assert.LessOrEqual(t, len([]rune(out["User-Agent"][0])), maxLoggedValue+1)

	assert.Nil(t, SanitizeHeaders(nil))
}

func TestSanitizePath(t *testing.T) {
	assert.Equal(t, "/api/v1/escalations", SanitizePath("/api/v1/escalations?loan_id=abc"))
	assert.Equal(t, "/a b", SanitizePath("/a\r\nb"))
}
