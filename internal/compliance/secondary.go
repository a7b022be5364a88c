package compliance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/auma/compliance-gate/internal/logger"
	"github.com/auma/compliance-gate/internal/metrics"
	"github.com/auma/compliance-gate/internal/models"
	"github.com/auma/compliance-gate/internal/util"
)

// SecondaryInstruction is the fixed system prompt sent to the text classifier.
const SecondaryInstruction = `You are a SAFE Act compliance checker for a mortgage loan portal.
Determine whether the borrower message asks for information only a licensed Mortgage Loan Originator may provide:
specific interest rates, payment amounts, loan product recommendations, or personalized financial advice.
Respond with JSON only: {"blocked": boolean, "reason": string or null, "keywords": string[]}`

// FailMode decides what an unusable secondary answer means.
type FailMode string

const (
	FailOpen   FailMode = "fail_open"
	FailClosed FailMode = "fail_closed"
)

// ParseFailMode accepts fail_open and fail_closed; empty means fail_open.
func ParseFailMode(s string) (FailMode, error) {
	switch FailMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", FailOpen:
		return FailOpen, nil
	case FailClosed:
		return FailClosed, nil
	}
	return "", fmt.Errorf("unknown secondary fail mode %q", s)
}

// Completer is an external chat model that answers a system and user prompt.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

var errMalformedJudgment = errors.New("malformed secondary judgment")

type judgment struct {
	Blocked  *bool    `json:"blocked"`
	Reason   *string  `json:"reason"`
	Keywords []string `json:"keywords"`
}

// SecondaryChecker asks an external model for a second opinion on messages
// the keyword layers allowed.
type SecondaryChecker struct {
	completer Completer
	mode      FailMode
}

func NewSecondaryChecker(c Completer, mode FailMode) *SecondaryChecker {
	if mode == "" {
		mode = FailOpen
	}
	return &SecondaryChecker{completer: c, mode: mode}
}

// Mode returns the configured failure behaviour.
func (s *SecondaryChecker) Mode() FailMode { return s.mode }

// Check never returns an error. A failed call or an unparseable answer is
// resolved by the fail mode.
func (s *SecondaryChecker) Check(ctx context.Context, message string) (blocked bool, keywords []string) {
	raw, err := s.completer.Complete(ctx, SecondaryInstruction, message)
	if err != nil {
		return s.fallback(err)
	}

	j, err := parseJudgment(raw)
	if err != nil {
		logger.Log().WithField("response", util.Truncate(util.SanitizeForLog(raw), 200)).Debug("Unparseable secondary compliance response")
		return s.fallback(err)
	}
	if !*j.Blocked {
		return false, nil
	}
	kw := j.Keywords
	if kw == nil {
		kw = []string{}
	}
	return true, kw
}

func (s *SecondaryChecker) fallback(err error) (bool, []string) {
	metrics.IncSecondaryFailure()
	entry := logger.Log().WithError(err).WithField("fail_mode", string(s.mode))
	if s.mode == FailClosed {
		entry.Warn("Secondary compliance check failed; blocking message")
		return true, []string{}
	}
	entry.Warn("Secondary compliance check failed; allowing message")
	return false, nil
}

// parseJudgment extracts the JSON object from a model reply. Markdown code
// fences and surrounding prose are tolerated; a missing "blocked" is not.
func parseJudgment(raw string) (*judgment, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, errMalformedJudgment
	}

	var j judgment
	if err := json.Unmarshal([]byte(s[start:end+1]), &j); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedJudgment, err)
	}
	if j.Blocked == nil {
		return nil, fmt.Errorf("%w: missing blocked", errMalformedJudgment)
	}
	return &j, nil
}

// Engine runs the keyword classifier and, when configured, the secondary
// check for messages the keywords allowed.
type Engine struct {
	Classifier *Classifier
	Secondary  *SecondaryChecker
}

func NewEngine(c *Classifier, s *SecondaryChecker) *Engine {
	return &Engine{Classifier: c, Secondary: s}
}

// Check classifies message. The secondary check is skipped for blocked
// verdicts and for safe-topic exemptions.
func (e *Engine) Check(ctx context.Context, message string, hint Hint) Verdict {
	v := e.Classifier.Classify(message, hint)
	if v.Blocked || v.SafeTopic || e.Secondary == nil {
		return v
	}

	blocked, keywords := e.Secondary.Check(ctx, message)
	if !blocked {
		return v
	}
	return Verdict{
		Blocked:           true,
		Reason:            models.ReasonAIDetected,
		MatchedKeywords:   keywords,
		SuggestedResponse: e.Classifier.Policy().ResponseFor(models.ReasonAIDetected),
	}
}
