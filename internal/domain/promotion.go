package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Promotion status constants. Only active promotions are evaluated.
const (
	PromotionStatusDraft    = "draft"
	PromotionStatusActive   = "active"
	PromotionStatusPaused   = "paused"
	PromotionStatusExpired  = "expired"
	PromotionStatusArchived = "archived"
)

// RuleType discriminates the kind of discount a rule grants.
type RuleType string

const (
	RuleTypePercent RuleType = "PERCENT"
	RuleTypeAmount  RuleType = "AMOUNT"
)

// TargetType discriminates what part of the cart a rule discounts.
type TargetType string

const (
	TargetTypeCategory TargetType = "CATEGORY"
	TargetTypeOrder    TargetType = "ORDER"
)

var hundred = decimal.NewFromInt(100)

// Promotion is a candidate discount rule supplied by the promotions catalog.
type Promotion struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Priority    int         `json:"priority"`
	Stackable   bool        `json:"stackable"`
	Status      string      `json:"status"`
	Rule        *Rule       `json:"rule"`
	Constraints Constraints `json:"constraints"`
}

// IsActive reports whether the promotion takes part in evaluation.
func (p *Promotion) IsActive() bool {
	return p.Status == PromotionStatusActive
}

// Validate checks the shape of the promotion definition.
func (p *Promotion) Validate() error {
	if p.ID == "" {
		return errors.New("promotion id is required")
	}
	if p.Rule == nil {
		return fmt.Errorf("promotion %s: rule is required", p.ID)
	}
	if err := p.Rule.Validate(); err != nil {
		return fmt.Errorf("promotion %s: %w", p.ID, err)
	}
	if err := p.Constraints.Validate(); err != nil {
		return fmt.Errorf("promotion %s: %w", p.ID, err)
	}
	return nil
}

// Rule describes the discount granted by a promotion.
type Rule struct {
	Type   RuleType        `json:"type"`
	Target *Target         `json:"target"`
	Value  decimal.Decimal `json:"value"`
}

// Validate checks the rule and its target.
func (r *Rule) Validate() error {
	switch r.Type {
	case RuleTypePercent:
		if r.Value.IsNegative() || r.Value.GreaterThan(hundred) {
			return fmt.Errorf("percent rule value must be between 0 and 100, got %s", r.Value)
		}
	case RuleTypeAmount:
		if r.Value.IsNegative() {
			return fmt.Errorf("amount rule value must not be negative, got %s", r.Value)
		}
	case "":
		return errors.New("rule type is required")
	default:
		return fmt.Errorf("unknown rule type %q", r.Type)
	}
	if r.Target == nil {
		return errors.New("rule target is required")
	}
	return r.Target.Validate()
}

// Target selects the part of the cart a rule applies to.
type Target struct {
	Type        TargetType `json:"type"`
	CategoryIDs []string   `json:"category_ids,omitempty"`
}

// Validate checks the target shape.
func (t *Target) Validate() error {
	switch t.Type {
	case TargetTypeCategory:
		if len(t.CategoryIDs) == 0 {
			return errors.New("category target requires at least one category id")
		}
	case TargetTypeOrder:
	case "":
		return errors.New("target type is required")
	default:
		return fmt.Errorf("unknown target type %q", t.Type)
	}
	return nil
}

// Matches reports whether a cart item falls inside the target.
func (t *Target) Matches(item CartItem) bool {
	switch t.Type {
	case TargetTypeOrder:
		return true
	case TargetTypeCategory:
		for _, id := range t.CategoryIDs {
			if id == item.Product.CategoryID {
				return true
			}
		}
	}
	return false
}

// Constraints are preconditions checked before target matching.
type Constraints struct {
	MinSubtotal *decimal.Decimal `json:"min_subtotal,omitempty"`

	// OrderTypes restricts the promotion to the listed order types.
	// Empty means any order type.
	OrderTypes []string `json:"order_types,omitempty"`

	// Condition is a JSONLogic expression evaluated against the order context.
	Condition json.RawMessage `json:"condition,omitempty"`
}

// Validate checks the constraint values.
func (c *Constraints) Validate() error {
	if c.MinSubtotal != nil && c.MinSubtotal.IsNegative() {
		return fmt.Errorf("min subtotal must not be negative, got %s", c.MinSubtotal)
	}
	return nil
}

// HasCondition reports whether a condition expression is set. A JSON null
// counts as no condition.
func (c *Constraints) HasCondition() bool {
	cond := bytes.TrimSpace(c.Condition)
	return len(cond) > 0 && !bytes.Equal(cond, []byte("null"))
}

// AllowsOrderType reports whether the order type satisfies the constraint.
func (c *Constraints) AllowsOrderType(orderType string) bool {
	if len(c.OrderTypes) == 0 {
		return true
	}
	for _, t := range c.OrderTypes {
		if t == orderType {
			return true
		}
	}
	return false
}

// ValidStatuses returns the set of valid promotion statuses.
func ValidStatuses() []string {
	return []string{
		PromotionStatusDraft,
		PromotionStatusActive,
		PromotionStatusPaused,
		PromotionStatusExpired,
		PromotionStatusArchived,
	}
}

// IsValidStatus checks whether the given status string is a valid promotion status.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}
