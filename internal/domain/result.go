package domain

import "github.com/shopspring/decimal"

// Ineligibility reason codes.
const (
	ReasonCodeOrderTypeNotAllowed = "ORDER_TYPE_NOT_ALLOWED"
	ReasonCodeMinSubtotalNotMet   = "MIN_SUBTOTAL_NOT_MET"
	ReasonCodeConditionNotMet     = "CONDITION_NOT_MET"
	ReasonCodeNoEligibleItems     = "NO_ELIGIBLE_ITEMS"
	ReasonCodeBlockedByExclusive  = "BLOCKED_BY_EXCLUSIVE"
	ReasonCodeFullyDiscounted     = "FULLY_DISCOUNTED"
)

// Ineligibility reasons shown to staff.
const (
	ReasonOrderTypeNotAllowed = "Not available for this order type"
	ReasonMinSubtotalNotMet   = "Minimum subtotal not met"
	ReasonConditionNotMet     = "Promotion conditions not met"
	ReasonNoEligibleItems     = "No eligible items in cart"
	ReasonBlockedByExclusive  = "Blocked by another exclusive promotion"
	ReasonFullyDiscounted     = "Order is already fully discounted"
)

// EvaluationResult is the outcome of evaluating a cart against promotions.
type EvaluationResult struct {
	Subtotal             decimal.Decimal       `json:"subtotal"`
	AppliedPromotions    []AppliedPromotion    `json:"applied_promotions"`
	IneligiblePromotions []IneligiblePromotion `json:"ineligible_promotions"`
	TotalDiscount        decimal.Decimal       `json:"total_discount"`
}

// AppliedPromotion is a promotion that contributes a discount to the order.
type AppliedPromotion struct {
	PromotionID    string          `json:"promotion_id"`
	Name           string          `json:"name"`
	RuleType       RuleType        `json:"rule_type"`
	Stackable      bool            `json:"stackable"`
	EligibleAmount decimal.Decimal `json:"eligible_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

// IneligiblePromotion explains why an active promotion was not applied.
type IneligiblePromotion struct {
	PromotionID string `json:"promotion_id"`
	Code        string `json:"code"`
	Reason      string `json:"reason"`
	Suggestion  string `json:"suggestion,omitempty"`
	BlockedBy   string `json:"blocked_by,omitempty"`
}
