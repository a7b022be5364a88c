package middleware

import (
	"net/http"
	"strings"

	"github.com/auma/compliance-gate/internal/util"
)

const maxLoggedValue = 200

// redactedHeaders never reach the logs. Keys are canonical header names.
var redactedHeaders = map[string]bool{
	"Authorization":       true,
	"Proxy-Authorization": true,
	"Cookie":              true,
	"Set-Cookie":          true,
	APIKeyHeader:          true,
	"X-Forwarded-For":     true,
}

// SanitizeHeaders copies h for logging with credentials redacted and every
// other value stripped of control characters and truncated.
func SanitizeHeaders(h http.Header) map[string][]string {
	if h == nil {
		return nil
	}
	out := make(map[string][]string, len(h))
	for k, vals := range h {
		if redactedHeaders[http.CanonicalHeaderKey(k)] {
			out[k] = []string{"<redacted>"}
			continue
		}
		clean := make([]string, len(vals))
		for i, v := range vals {
			clean[i] = util.Truncate(util.SanitizeForLog(v), maxLoggedValue)
		}
		out[k] = clean
	}
	return out
}

// SanitizePath drops the query string, which can carry loan and borrower
// ids, and strips control characters.
func SanitizePath(p string) string {
	p, _, _ = strings.Cut(p, "?")
	return util.Truncate(util.SanitizeForLog(p), maxLoggedValue)
}
