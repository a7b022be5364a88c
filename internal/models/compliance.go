package models

import "time"

// ComplianceReason identifies why a message was blocked or escalated.
type ComplianceReason string

const (
	ReasonRateInquiry       ComplianceReason = "RATE_INQUIRY"
	ReasonAdviceRequest     ComplianceReason = "ADVICE_REQUEST"
	ReasonProductComparison ComplianceReason = "PRODUCT_COMPARISON"
	ReasonPricingDiscussion ComplianceReason = "PRICING_DISCUSSION"
	ReasonAIDetected        ComplianceReason = "AI_DETECTED"
	ReasonManualEscalation  ComplianceReason = "MANUAL_ESCALATION"
	ReasonNone              ComplianceReason = "NONE"
)

// ResponseSLA is the human response window promised in every MLO notification.
const ResponseSLA = 2 * time.Hour

// Label returns the human readable form used in notification copy.
func (r ComplianceReason) Label() string {
	switch r {
	case ReasonRateInquiry:
		return "Rate Inquiry"
	case ReasonAdviceRequest:
		return "Advice Request"
	case ReasonProductComparison:
		return "Product Comparison"
	case ReasonPricingDiscussion:
		return "Pricing Discussion"
	case ReasonAIDetected:
		return "AI Detected Compliance Issue"
	case ReasonManualEscalation:
		return "Manual Escalation"
	default:
		return "Compliance Review"
	}
}

// Valid reports whether r is a known reason (NONE included).
func (r ComplianceReason) Valid() bool {
	switch r {
	case ReasonRateInquiry, ReasonAdviceRequest, ReasonProductComparison,
		ReasonPricingDiscussion, ReasonAIDetected, ReasonManualEscalation, ReasonNone:
		return true
	}
	return false
}

// Actor is the party recorded as having performed an audited action.
type Actor string

const (
	ActorAIAssistant     Actor = "ai_assistant"
	ActorHumanProcessor  Actor = "human_processor"
	ActorMLO             Actor = "mlo"
	ActorAutomatedSystem Actor = "automated_system"
	ActorBorrower        Actor = "borrower"
)

// MessageSource is the borrower channel a checked message arrived on.
type MessageSource string

const (
	SourcePortal MessageSource = "portal"
	SourceChat   MessageSource = "chat"
	SourceEmail  MessageSource = "email"
	SourceSMS    MessageSource = "sms"
)
