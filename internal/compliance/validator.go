package compliance

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	ViolationRatePercentage = "contains specific rate percentage"
	ViolationPaymentAmount  = "contains specific payment amount"
)

var (
	ratePattern    = regexp.MustCompile(`\d+\.?\d*\s*%`)
	paymentPattern = regexp.MustCompile(`\$\s*\d[\d,]*\s*/?\s*(month|mo|monthly)?`)
)

// ValidationResult lists every problem found in an outbound reply.
type ValidationResult struct {
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations"`
}

// Validate scans an AI generated reply for numeric rate or payment
// disclosures and advisory phrasing. All checks run; violations accumulate.
func Validate(response string, phrases []string) ValidationResult {
	violations := []string{}
	lower := strings.ToLower(response)

	if ratePattern.MatchString(response) {
		violations = append(violations, ViolationRatePercentage)
	}
	if paymentPattern.MatchString(response) && strings.Contains(lower, "payment") {
		violations = append(violations, ViolationPaymentAmount)
	}
	for _, phrase := range phrases {
		if strings.Contains(lower, phrase) {
			violations = append(violations, fmt.Sprintf("contains recommendation phrase: %q", phrase))
		}
	}

	return ValidationResult{Valid: len(violations) == 0, Violations: violations}
}
