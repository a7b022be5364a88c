package compliance

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auma/compliance-gate/internal/models"
)

func TestDefaultPolicy_Valid(t *testing.T) {
	p := DefaultPolicy()
	require.NoError(t, p.Validate())
	assert.Equal(t, BuiltinVersion, p.Version)
	assert.NotContains(t, p.AdviceKeywords, "better")
	assert.Contains(t, p.ComparisonMarkers, "better")
}

func TestLoadPolicy_MissingFileUsesDefaults(t *testing.T) {
	p, err := LoadPolicy(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, BuiltinVersion, p.Version)

	p, err = LoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy().RateKeywords, p.RateKeywords)
}

func TestLoadPolicy_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rate_keywords:
  - " Rate "
  - escrow
responses:
  RATE_INQUIRY: "Your loan officer will call you."
`), 0o600))

	p, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"rate", "escrow"}, p.RateKeywords)
	assert.True(t, strings.HasPrefix(p.Version, "sha256:"))
	assert.Equal(t, "Your loan officer will call you.", p.ResponseFor(models.ReasonRateInquiry))
	// Untouched entries keep their defaults.
	assert.Equal(t, DefaultPolicy().Responses[models.ReasonAdviceRequest], p.ResponseFor(models.ReasonAdviceRequest))
	assert.Equal(t, DefaultPolicy().AdviceKeywords, p.AdviceKeywords)
}

func TestParsePolicy_Errors(t *testing.T) {
	_, err := ParsePolicy([]byte("rate_keywords: [unterminated"))
	assert.ErrorContains(t, err, "parse policy")

	_, err = ParsePolicy([]byte(`responses: {PRICING_DISCUSSION: "  "}`))
	assert.ErrorContains(t, err, "PRICING_DISCUSSION")

	_, err = ParsePolicy([]byte(`compliant_responses: {timeline: "{{.Broken"}`))
	assert.ErrorContains(t, err, "timeline")

	_, err = ParsePolicy([]byte("rate_keywords: []\nadvice_keywords: []\nproduct_keywords: []\n"))
	assert.ErrorContains(t, err, "no keywords")
}

func TestPolicy_ResponseFor(t *testing.T) {
	p := DefaultPolicy()
	assert.Empty(t, p.ResponseFor(models.ReasonNone))
	assert.Equal(t, p.Responses[models.ReasonAIDetected], p.ResponseFor(models.ReasonManualEscalation))
}

func TestPolicy_CompliantResponse(t *testing.T) {
	p := DefaultPolicy()

	text, err := p.CompliantResponse("rate_inquiry", "Jane Smith", "555-0100")
	require.NoError(t, err)
	assert.Contains(t, text, "please contact Jane Smith at 555-0100.")

	text, err = p.CompliantResponse("rate_inquiry", "", "")
	require.NoError(t, err)
	assert.Contains(t, text, "please contact your Mortgage Loan Originator.")

	text, err = p.CompliantResponse("no_such_topic", "", "")
	require.NoError(t, err)
	assert.Equal(t, p.CompliantResponses["status_update"], text)
}
