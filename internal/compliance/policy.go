package compliance

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/auma/compliance-gate/internal/models"
)

// BuiltinVersion is reported as the policy version when no file was loaded.
const BuiltinVersion = "builtin"

// Policy is the versionable keyword and response data the classifier runs on.
// Keyword lists are evaluated in the order given.
type Policy struct {
	SafeTopics            []string                           `yaml:"safe_topics"`
	RateKeywords          []string                           `yaml:"rate_keywords"`
	AdviceKeywords        []string                           `yaml:"advice_keywords"`
	ProductKeywords       []string                           `yaml:"product_keywords"`
	ComparisonMarkers     []string                           `yaml:"comparison_markers"`
	PricingKeywords       []string                           `yaml:"pricing_keywords"`
	RecommendationPhrases []string                           `yaml:"recommendation_phrases"`
	Responses             map[models.ComplianceReason]string `yaml:"responses"`
	CompliantResponses    map[string]string                  `yaml:"compliant_responses"`

	// Version is the sha256 of the file the policy was read from.
	Version string `yaml:"-"`
}

// blockingReasons must each have a canned response.
var blockingReasons = []models.ComplianceReason{
	models.ReasonRateInquiry,
	models.ReasonAdviceRequest,
	models.ReasonProductComparison,
	models.ReasonPricingDiscussion,
	models.ReasonAIDetected,
}

// DefaultPolicy returns the built-in policy.
func DefaultPolicy() *Policy {
	return &Policy{
		SafeTopics: []string{
			"document status", "application status", "loan status", "upload document",
			"missing documents", "conditions", "timeline", "next steps",
			"contact information", "office hours", "appointment", "schedule",
		},
		RateKeywords: []string{
			"rate", "rates", "apr", "interest", "interest rate", "payment", "monthly payment",
			"payments", "lock", "rate lock", "points", "discount points", "closing costs",
			"fees", "origination", "lender credit",
		},
		// "better" is a comparison marker only; see ComparisonMarkers.
		AdviceKeywords: []string{
			"should i", "should we", "recommend", "recommendation", "best loan",
			"best option", "advice", "advise", "suggest", "suggestion", "which loan",
			"what loan", "what type", "which type", "compare", "comparison",
			"pros and cons", "benefits", "advantages", "disadvantages",
		},
		ProductKeywords: []string{
			"conventional", "fha", "va loan", "usda", "jumbo", "arm", "adjustable",
			"fixed rate", "30 year", "15 year", "30-year", "15-year", "refinance",
			"cash out", "cash-out", "heloc", "home equity",
		},
		ComparisonMarkers: []string{"compare", "vs", "versus", "or", "difference", "better"},
		PricingKeywords: []string{
			"how much to close", "cash to close", "cost to refinance", "cost to buy",
		},
		RecommendationPhrases: []string{
			"i recommend", "you should", "the best option", "i suggest", "i advise",
			"my recommendation", "in my opinion", "i think you should",
		},
		Responses: map[models.ComplianceReason]string{
			models.ReasonRateInquiry: "That's an excellent question about loan terms. Since this involves specific rate and payment information, " +
				"I've notified your licensed Mortgage Loan Originator who will contact you within 2 hours to discuss your options in detail. " +
				"They're the best person to explain how different rate scenarios would work for your specific situation.",
			models.ReasonAdviceRequest: "I appreciate you asking for my recommendation. Under federal regulations, only a licensed Mortgage Loan Originator " +
				"can provide that type of guidance. I've notified your MLO, and they will reach out within 2 hours to help you evaluate your options.",
			models.ReasonProductComparison: "Great question about loan products! Your licensed Mortgage Loan Originator is the best resource for explaining " +
				"how different loan programs might work for your situation. I've let them know you have questions, and they'll be in touch within 2 hours.",
			models.ReasonPricingDiscussion: "Closing costs and fees depend on the details of your loan, so your licensed Mortgage Loan Originator needs to " +
				"walk you through them. I've notified your MLO, and they will contact you within 2 hours.",
			models.ReasonAIDetected: "This is an important question that requires input from your licensed Mortgage Loan Originator. " +
				"I've notified them, and they will contact you shortly to provide the guidance you need.",
		},
		CompliantResponses: map[string]string{
			"rate_inquiry": "For specific rate information, please contact {{with .MloName}}{{.}}{{else}}your Mortgage Loan Originator{{end}}" +
				"{{with .MloPhone}} at {{.}}{{end}}. They can provide personalized rate quotes based on your specific situation.",
			"loan_comparison": "Comparing loan options is an important decision. {{with .MloName}}{{.}}{{else}}Your MLO{{end}} can walk you through " +
				"the differences and help you understand which might work best for your needs. Would you like me to have them reach out to you?",
			"payment_inquiry": "Monthly payment amounts depend on several factors including your rate, loan term, and property taxes/insurance. " +
				"{{with .MloName}}{{.}}{{else}}Your MLO{{end}} can provide a detailed breakdown. Shall I have them contact you?",
			"status_update": "I can help with that! Let me check your loan status and get you the latest information.",
			"document_help": "I'd be happy to help with your documents. You can upload them through the portal, and I'll make sure they get to " +
				"the right place for review.",
			"timeline": "I can provide general timeline information. Typically, the mortgage process takes 30-45 days from application to closing, " +
				"but your specific timeline depends on several factors. Would you like me to check where we are in your specific process?",
		},
		Version: BuiltinVersion,
	}
}

// LoadPolicy reads a YAML policy on top of the defaults. An empty path or a
// missing file returns the defaults. Lists in the file replace the default
// lists; response tables are merged key by key.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultPolicy(), nil
		}
		return nil, fmt.Errorf("read policy: %w", err)
	}

	return ParsePolicy(data)
}

// ParsePolicy decodes raw YAML over the defaults and validates the result.
func ParsePolicy(data []byte) (*Policy, error) {
	p := DefaultPolicy()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}

	h := sha256.Sum256(data)
	p.Version = "sha256:" + hex.EncodeToString(h[:])

	p.normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Policy) normalize() {
	p.SafeTopics = normalizeList(p.SafeTopics)
	p.RateKeywords = normalizeList(p.RateKeywords)
	p.AdviceKeywords = normalizeList(p.AdviceKeywords)
	p.ProductKeywords = normalizeList(p.ProductKeywords)
	p.ComparisonMarkers = normalizeList(p.ComparisonMarkers)
	p.PricingKeywords = normalizeList(p.PricingKeywords)
	p.RecommendationPhrases = normalizeList(p.RecommendationPhrases)
}

// Validate checks the policy can drive the classifier.
func (p *Policy) Validate() error {
	if len(p.RateKeywords) == 0 && len(p.AdviceKeywords) == 0 && len(p.ProductKeywords) == 0 {
		return fmt.Errorf("policy has no keywords")
	}
	for _, r := range blockingReasons {
		if strings.TrimSpace(p.Responses[r]) == "" {
			return fmt.Errorf("policy has no response for %s", r)
		}
	}
	for topic, text := range p.CompliantResponses {
		if _, err := template.New(topic).Parse(text); err != nil {
			return fmt.Errorf("compliant response %q: %w", topic, err)
		}
	}
	return nil
}

// ResponseFor returns the canned borrower reply for a blocking reason.
func (p *Policy) ResponseFor(reason models.ComplianceReason) string {
	if reason == models.ReasonNone {
		return ""
	}
	if text, ok := p.Responses[reason]; ok && text != "" {
		return text
	}
	return p.Responses[models.ReasonAIDetected]
}

// CompliantResponse renders a safe reply for a conversation topic. Unknown
// topics fall back to status_update.
func (p *Policy) CompliantResponse(topic, mloName, mloPhone string) (string, error) {
	text, ok := p.CompliantResponses[topic]
	if !ok {
		text = p.CompliantResponses["status_update"]
	}
	tmpl, err := template.New(topic).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse compliant response: %w", err)
	}
	var buf bytes.Buffer
	data := struct{ MloName, MloPhone string }{MloName: mloName, MloPhone: mloPhone}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render compliant response: %w", err)
	}
	return buf.String(), nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
