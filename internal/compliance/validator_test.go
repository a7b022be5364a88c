package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_AccumulatesViolations(t *testing.T) {
	res := Validate("I recommend the FHA loan at 3.5% with a $1,500 monthly payment", DefaultPolicy().RecommendationPhrases)

	assert.False(t, res.Valid)
	assert.GreaterOrEqual(t, len(res.Violations), 3)
	assert.Contains(t, res.Violations, ViolationRatePercentage)
	assert.Contains(t, res.Violations, ViolationPaymentAmount)
	assert.Contains(t, res.Violations, `contains recommendation phrase: "i recommend"`)
}

func TestValidate(t *testing.T) {
	phrases := DefaultPolicy().RecommendationPhrases

	tests := []struct {
		name     string
		response string
		valid    bool
	}{
		{"clean", "Your appraisal is scheduled for Tuesday.", true},
		{"percentage", "Rates are around 6.25 % right now.", false},
		{"dollar amount without payment context", "Your earnest money deposit of $5,000 was received.", true},
		{"payment amount", "Your payment would be $2,100/mo.", false},
		{"dollar sign without digits", "No $, payment plan details yet.", true},
		{"advisory", "In my opinion this is a good time.", false},
		{"you should", "You should upload your W-2.", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.response, phrases)
			assert.Equal(t, tt.valid, res.Valid, res.Violations)
			assert.NotNil(t, res.Violations)
		})
	}
}

func TestValidate_EachPhrase(t *testing.T) {
	for _, phrase := range DefaultPolicy().RecommendationPhrases {
		res := Validate("Well, "+phrase+" go ahead.", []string{phrase})
		assert.False(t, res.Valid, phrase)
		assert.Len(t, res.Violations, 1, phrase)
	}
}
