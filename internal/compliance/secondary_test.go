package compliance

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auma/compliance-gate/internal/models"
)

type fakeCompleter struct {
	reply  string
	err    error
	calls  int
	system string
}

func (f *fakeCompleter) Complete(_ context.Context, system, _ string) (string, error) {
	f.calls++
	f.system = system
	return f.reply, f.err
}

func TestParseFailMode(t *testing.T) {
	m, err := ParseFailMode("")
	require.NoError(t, err)
	assert.Equal(t, FailOpen, m)

	m, err = ParseFailMode(" FAIL_CLOSED ")
	require.NoError(t, err)
	assert.Equal(t, FailClosed, m)

	_, err = ParseFailMode("sometimes")
	assert.Error(t, err)
}

func TestSecondaryChecker_Check(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		err      error
		mode     FailMode
		blocked  bool
		keywords []string
	}{
		{"allowed", `{"blocked": false, "reason": null, "keywords": []}`, nil, FailOpen, false, nil},
		{"blocked", `{"blocked": true, "reason": "rate", "keywords": ["apr"]}`, nil, FailOpen, true, []string{"apr"}},
		{"fenced", "```json\n{\"blocked\": true, \"keywords\": [\"payment\"]}\n```", nil, FailOpen, true, []string{"payment"}},
		{"surrounding prose", `Sure! {"blocked": true} Hope that helps.`, nil, FailOpen, true, []string{}},
		{"garbage fail open", "I cannot help with that", nil, FailOpen, false, nil},
		{"garbage fail closed", "I cannot help with that", nil, FailClosed, true, []string{}},
		{"missing blocked fail closed", `{"reason": "rate"}`, nil, FailClosed, true, []string{}},
		{"transport error fail open", "", errors.New("timeout"), FailOpen, false, nil},
		{"transport error fail closed", "", errors.New("timeout"), FailClosed, true, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCompleter{reply: tt.reply, err: tt.err}
			s := NewSecondaryChecker(fc, tt.mode)

			blocked, keywords := s.Check(context.Background(), "message")
			assert.Equal(t, tt.blocked, blocked)
			assert.Equal(t, tt.keywords, keywords)
			assert.Equal(t, SecondaryInstruction, fc.system)
		})
	}
}

func TestEngine_Check(t *testing.T) {
	fc := &fakeCompleter{reply: `{"blocked": true, "keywords": ["tax deduction"]}`}
	e := NewEngine(NewClassifier(nil), NewSecondaryChecker(fc, FailOpen))
	ctx := context.Background()

	// Keyword blocks never reach the secondary check.
	v := e.Check(ctx, "What's my rate?", Hint{})
	assert.Equal(t, models.ReasonRateInquiry, v.Reason)
	assert.Equal(t, 0, fc.calls)

	// Neither do safe topics.
	v = e.Check(ctx, "Can you check my document status?", Hint{})
	assert.False(t, v.Blocked)
	assert.Equal(t, 0, fc.calls)

	v = e.Check(ctx, "Can I deduct this on my taxes?", Hint{})
	assert.True(t, v.Blocked)
	assert.Equal(t, models.ReasonAIDetected, v.Reason)
	assert.Equal(t, []string{"tax deduction"}, v.MatchedKeywords)
	assert.Equal(t, DefaultPolicy().Responses[models.ReasonAIDetected], v.SuggestedResponse)
	assert.Equal(t, 1, fc.calls)
}

func TestEngine_CheckWithoutSecondary(t *testing.T) {
	e := NewEngine(NewClassifier(nil), nil)
	v := e.Check(context.Background(), "Can I deduct this on my taxes?", Hint{})
	assert.False(t, v.Blocked)
	assert.Equal(t, models.ReasonNone, v.Reason)
}
