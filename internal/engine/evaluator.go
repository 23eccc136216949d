// Package engine decides which promotions apply to a cart and how much each
// one discounts. Evaluation is a pure function of its input: it performs no
// I/O, keeps no state between calls and never mutates the values it reads, so
// it may be called concurrently without coordination.
package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/utafrali/pos-promotions/internal/domain"
)

var (
	// ErrMalformedPromotion marks a promotion definition the engine cannot evaluate.
	ErrMalformedPromotion = errors.New("malformed promotion")

	// ErrMalformedCartItem marks a cart line that breaks the cart contract.
	ErrMalformedCartItem = errors.New("malformed cart item")
)

// Input is everything a single evaluation reads.
type Input struct {
	Items      []domain.CartItem
	Promotions []domain.Promotion

	// OrderType is matched against order type constraints (dine-in, takeout, ...).
	OrderType string
}

// Evaluate determines the applicable promotions for the cart in priority order
// and explains every active promotion that was not applied.
//
// Promotions are processed by ascending priority, ties keeping input order.
// The first exclusive promotion that qualifies is applied and locks the
// result: every promotion processed after it is reported as blocked. Stackable
// promotions applied before the lock stay applied.
func Evaluate(in Input) (*domain.EvaluationResult, error) {
	if err := validateItems(in.Items); err != nil {
		return nil, err
	}

	active, err := activeByPriority(in.Promotions)
	if err != nil {
		return nil, err
	}

	subtotal := domain.Subtotal(in.Items)
	result := &domain.EvaluationResult{
		Subtotal:             subtotal,
		AppliedPromotions:    []domain.AppliedPromotion{},
		IneligiblePromotions: []domain.IneligiblePromotion{},
		TotalDiscount:        decimal.Zero,
	}

	ev := &evaluation{items: in.Items, orderType: in.OrderType, subtotal: subtotal}

	var lockedBy string
	for _, p := range active {
		if lockedBy != "" {
			result.IneligiblePromotions = append(result.IneligiblePromotions, domain.IneligiblePromotion{
				PromotionID: p.ID,
				Code:        domain.ReasonCodeBlockedByExclusive,
				Reason:      domain.ReasonBlockedByExclusive,
				BlockedBy:   lockedBy,
			})
			continue
		}

		applied, rejection, err := ev.apply(p, subtotal.Sub(result.TotalDiscount))
		if err != nil {
			return nil, err
		}
		if rejection != nil {
			result.IneligiblePromotions = append(result.IneligiblePromotions, *rejection)
			continue
		}

		result.AppliedPromotions = append(result.AppliedPromotions, *applied)
		result.TotalDiscount = result.TotalDiscount.Add(applied.DiscountAmount)
		if !p.Stackable {
			lockedBy = p.ID
		}
	}

	return result, nil
}

// evaluation carries the per-call values shared by every promotion.
type evaluation struct {
	items     []domain.CartItem
	orderType string
	subtotal  decimal.Decimal

	// conditionData is the JSONLogic data document, built on first use.
	conditionData []byte
}

// apply runs constraints, target matching and discount computation for one
// promotion. Exactly one of the returned values is non-nil.
func (ev *evaluation) apply(p *domain.Promotion, remaining decimal.Decimal) (*domain.AppliedPromotion, *domain.IneligiblePromotion, error) {
	reject := func(code, reason, suggestion string) (*domain.AppliedPromotion, *domain.IneligiblePromotion, error) {
		return nil, &domain.IneligiblePromotion{
			PromotionID: p.ID,
			Code:        code,
			Reason:      reason,
			Suggestion:  suggestion,
		}, nil
	}

	c := &p.Constraints
	if !c.AllowsOrderType(ev.orderType) {
		return reject(domain.ReasonCodeOrderTypeNotAllowed, domain.ReasonOrderTypeNotAllowed,
			fmt.Sprintf("Available for %s orders", strings.Join(c.OrderTypes, ", ")))
	}

	if c.MinSubtotal != nil && ev.subtotal.LessThan(*c.MinSubtotal) {
		return reject(domain.ReasonCodeMinSubtotalNotMet, domain.ReasonMinSubtotalNotMet,
			fmt.Sprintf("Spend %s more to unlock this promotion", FormatMoney(c.MinSubtotal.Sub(ev.subtotal))))
	}

	if c.HasCondition() {
		ok, err := ev.conditionHolds(c.Condition)
		if err != nil {
			return nil, nil, fmt.Errorf("promotion %s: evaluate condition: %v: %w", p.ID, err, ErrMalformedPromotion)
		}
		if !ok {
			return reject(domain.ReasonCodeConditionNotMet, domain.ReasonConditionNotMet, "")
		}
	}

	eligible := eligibleAmount(p.Rule.Target, ev.items, ev.subtotal)
	if !eligible.IsPositive() {
		suggestion := "Add items to the order to unlock this promotion"
		if p.Rule.Target.Type == domain.TargetTypeCategory {
			suggestion = "Add an item from an eligible category to unlock this promotion"
		}
		return reject(domain.ReasonCodeNoEligibleItems, domain.ReasonNoEligibleItems, suggestion)
	}

	if !remaining.IsPositive() {
		return reject(domain.ReasonCodeFullyDiscounted, domain.ReasonFullyDiscounted, "")
	}

	discount := computeDiscount(p.Rule, eligible)
	if discount.GreaterThan(remaining) {
		discount = remaining
	}

	return &domain.AppliedPromotion{
		PromotionID:    p.ID,
		Name:           p.Name,
		RuleType:       p.Rule.Type,
		Stackable:      p.Stackable,
		EligibleAmount: eligible,
		DiscountAmount: discount,
	}, nil, nil
}

// eligibleAmount is the part of the cart the target covers.
func eligibleAmount(t *domain.Target, items []domain.CartItem, subtotal decimal.Decimal) decimal.Decimal {
	if t.Type == domain.TargetTypeOrder {
		return subtotal
	}
	total := decimal.Zero
	for _, item := range items {
		if t.Matches(item) {
			total = total.Add(item.LineTotal())
		}
	}
	return total
}

// computeDiscount never returns more than the eligible amount.
func computeDiscount(r *domain.Rule, eligible decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch r.Type {
	case domain.RuleTypePercent:
		discount = RoundMoney(eligible.Mul(r.Value).Div(hundred))
	case domain.RuleTypeAmount:
		discount = r.Value
	}
	return decimal.Min(discount, eligible)
}

// activeByPriority filters active promotions, validates their shape and
// orders them by priority. The input slice is left untouched.
func activeByPriority(promotions []domain.Promotion) ([]*domain.Promotion, error) {
	active := make([]*domain.Promotion, 0, len(promotions))
	for i := range promotions {
		p := &promotions[i]
		if !p.IsActive() {
			continue
		}
		if err := validatePromotion(p); err != nil {
			return nil, err
		}
		active = append(active, p)
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Priority < active[j].Priority
	})
	return active, nil
}

func validatePromotion(p *domain.Promotion) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, ErrMalformedPromotion)
	}
	if p.Constraints.HasCondition() && !conditionIsValid(p.Constraints.Condition) {
		return fmt.Errorf("promotion %s: invalid condition expression: %w", p.ID, ErrMalformedPromotion)
	}
	return nil
}

func validateItems(items []domain.CartItem) error {
	for _, item := range items {
		if item.Quantity < 1 {
			return fmt.Errorf("cart item %s: quantity must be positive, got %d: %w", item.ID, item.Quantity, ErrMalformedCartItem)
		}
		if item.Price.IsNegative() {
			return fmt.Errorf("cart item %s: price must not be negative, got %s: %w", item.ID, item.Price, ErrMalformedCartItem)
		}
	}
	return nil
}
