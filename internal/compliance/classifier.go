// Package compliance decides whether borrower messages and AI replies may be
// answered automatically or must go to a licensed originator.
package compliance

import (
	"strings"
	"sync/atomic"

	"github.com/auma/compliance-gate/internal/models"
)

// Verdict is the result of classifying one message.
type Verdict struct {
	Blocked           bool                    `json:"blocked"`
	Reason            models.ComplianceReason `json:"reason"`
	MatchedKeywords   []string                `json:"matched_keywords"`
	SuggestedResponse string                  `json:"suggested_response,omitempty"`
	// SafeTopic is set when the safe-topic allow-list decided the verdict.
	SafeTopic bool `json:"safe_topic,omitempty"`
}

// Hint carries caller knowledge that influences classification.
type Hint struct {
	SafeTopicHint bool
}

func allowed() Verdict {
	return Verdict{Reason: models.ReasonNone, MatchedKeywords: []string{}}
}

// Classifier maps text to a Verdict using the current policy. It is safe for
// concurrent use; SetPolicy swaps the policy atomically.
type Classifier struct {
	policy atomic.Pointer[Policy]
}

// NewClassifier returns a classifier over p, or the default policy when p is nil.
func NewClassifier(p *Policy) *Classifier {
	if p == nil {
		p = DefaultPolicy()
	}
	c := &Classifier{}
	c.policy.Store(p)
	return c
}

// Policy returns the policy currently in force.
func (c *Classifier) Policy() *Policy { return c.policy.Load() }

// SetPolicy replaces the policy for subsequent calls.
func (c *Classifier) SetPolicy(p *Policy) {
	if p != nil {
		c.policy.Store(p)
	}
}

// Classify runs the keyword layers in fixed order: safe topics, rate, advice,
// product comparison, pricing. The first layer that matches decides.
func (c *Classifier) Classify(message string, hint Hint) Verdict {
	p := c.Policy()
	lower := strings.ToLower(message)

	rate := matches(lower, p.RateKeywords)
	advice := matches(lower, p.AdviceKeywords)

	if (hint.SafeTopicHint || containsAny(lower, p.SafeTopics)) && len(rate) == 0 && len(advice) == 0 {
		v := allowed()
		v.SafeTopic = true
		return v
	}

	if len(rate) > 0 {
		return c.block(p, models.ReasonRateInquiry, rate)
	}
	if len(advice) > 0 {
		return c.block(p, models.ReasonAdviceRequest, advice)
	}
	if product := matches(lower, p.ProductKeywords); len(product) > 0 && containsAny(lower, p.ComparisonMarkers) {
		return c.block(p, models.ReasonProductComparison, product)
	}
	if pricing := matches(lower, p.PricingKeywords); len(pricing) > 0 {
		return c.block(p, models.ReasonPricingDiscussion, pricing)
	}

	return allowed()
}

// ValidateResponse checks an outbound AI reply against the policy's phrases.
func (c *Classifier) ValidateResponse(response string) ValidationResult {
	return Validate(response, c.Policy().RecommendationPhrases)
}

func (c *Classifier) block(p *Policy, reason models.ComplianceReason, keywords []string) Verdict {
	return Verdict{
		Blocked:           true,
		Reason:            reason,
		MatchedKeywords:   keywords,
		SuggestedResponse: p.ResponseFor(reason),
	}
}

// matches returns every keyword contained in lower, in list order.
func matches(lower string, keywords []string) []string {
	var out []string
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			out = append(out, k)
		}
	}
	return out
}

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
