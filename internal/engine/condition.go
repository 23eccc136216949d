package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/diegoholiveira/jsonlogic"
)

// conditionContext is the document JSONLogic conditions are evaluated against.
type conditionContext struct {
	Subtotal    float64  `json:"subtotal"`
	OrderType   string   `json:"order_type"`
	ItemCount   int      `json:"item_count"`
	CategoryIDs []string `json:"category_ids"`
}

func conditionIsValid(cond json.RawMessage) bool {
	return jsonlogic.IsValid(bytes.NewReader(cond))
}

func (ev *evaluation) conditionHolds(cond json.RawMessage) (bool, error) {
	if ev.conditionData == nil {
		data, err := json.Marshal(ev.newConditionContext())
		if err != nil {
			return false, fmt.Errorf("marshal condition context: %w", err)
		}
		ev.conditionData = data
	}

	var out bytes.Buffer
	if err := jsonlogic.Apply(bytes.NewReader(cond), bytes.NewReader(ev.conditionData), &out); err != nil {
		return false, err
	}

	var v any
	if err := json.Unmarshal(out.Bytes(), &v); err != nil {
		return false, fmt.Errorf("decode condition result: %w", err)
	}
	return truthy(v), nil
}

func (ev *evaluation) newConditionContext() conditionContext {
	seen := make(map[string]struct{})
	categories := []string{}
	count := 0
	for _, item := range ev.items {
		count += item.Quantity
		id := item.Product.CategoryID
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		categories = append(categories, id)
	}
	sort.Strings(categories)

	return conditionContext{
		Subtotal:    ev.subtotal.InexactFloat64(),
		OrderType:   ev.orderType,
		ItemCount:   count,
		CategoryIDs: categories,
	}
}

// truthy follows JSONLogic truthiness rules.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	default:
		return true
	}
}
