// Package file serves the promotions catalog from a YAML document on disk.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/utafrali/pos-promotions/internal/domain"
	apperrors "github.com/utafrali/pos-promotions/pkg/errors"
)

// catalogDocument is the YAML layout of a catalog file:
//
//	promotions:
//	  - id: promo-dessert20
//	    name: Dessert Tuesday
//	    priority: 1
//	    status: active
//	    rule:
//	      type: PERCENT
//	      value: 20
//	      target: {type: CATEGORY, category_ids: [desserts]}
//	    constraints:
//	      min_subtotal: 15.00
//	      condition: {">=": [{var: item_count}, 2]}
type catalogDocument struct {
	Promotions []promotionEntry `yaml:"promotions"`
}

type promotionEntry struct {
	ID          string           `yaml:"id"`
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Priority    int              `yaml:"priority"`
	Stackable   bool             `yaml:"stackable"`
	Status      string           `yaml:"status"`
	Rule        *ruleEntry       `yaml:"rule"`
	Constraints constraintsEntry `yaml:"constraints"`
}

type ruleEntry struct {
	Type   string       `yaml:"type"`
	Value  money        `yaml:"value"`
	Target *targetEntry `yaml:"target"`
}

type targetEntry struct {
	Type        string   `yaml:"type"`
	CategoryIDs []string `yaml:"category_ids"`
}

type constraintsEntry struct {
	MinSubtotal *money   `yaml:"min_subtotal"`
	OrderTypes  []string `yaml:"order_types"`
	Condition   any      `yaml:"condition"`
}

// money decodes a YAML scalar into an exact decimal. Going through float64
// would turn 0.10 into 0.1000000000000000055.
type money struct {
	decimal.Decimal
}

func (m *money) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", value.Line)
	}
	d, err := decimal.NewFromString(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid amount %q", value.Line, value.Value)
	}
	m.Decimal = d
	return nil
}

func (e *promotionEntry) toDomain() (domain.Promotion, error) {
	p := domain.Promotion{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Priority:    e.Priority,
		Stackable:   e.Stackable,
		Status:      e.Status,
		Constraints: domain.Constraints{OrderTypes: e.Constraints.OrderTypes},
	}
	if p.Status == "" {
		p.Status = domain.PromotionStatusActive
	}

	if e.Rule != nil {
		p.Rule = &domain.Rule{
			Type:  domain.RuleType(e.Rule.Type),
			Value: e.Rule.Value.Decimal,
		}
		if e.Rule.Target != nil {
			p.Rule.Target = &domain.Target{
				Type:        domain.TargetType(e.Rule.Target.Type),
				CategoryIDs: e.Rule.Target.CategoryIDs,
			}
		}
	}

	if e.Constraints.MinSubtotal != nil {
		minSubtotal := e.Constraints.MinSubtotal.Decimal
		p.Constraints.MinSubtotal = &minSubtotal
	}
	if e.Constraints.Condition != nil {
		cond, err := json.Marshal(e.Constraints.Condition)
		if err != nil {
			return p, fmt.Errorf("promotion %s: encode condition: %w", e.ID, err)
		}
		p.Constraints.Condition = cond
	}

	return p, nil
}

// PromotionRepository implements repository.PromotionRepository over a YAML
// catalog file. The file is read at construction and on Reload.
type PromotionRepository struct {
	path string

	mu         sync.RWMutex
	promotions []domain.Promotion
	byID       map[string]int
}

// NewPromotionRepository loads the catalog at path.
func NewPromotionRepository(path string) (*PromotionRepository, error) {
	r := &PromotionRepository{path: path}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the catalog file. On error the previous catalog is kept.
func (r *PromotionRepository) Reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read promotion catalog: %w", err)
	}
	promotions, err := Parse(data)
	if err != nil {
		return fmt.Errorf("parse promotion catalog %s: %w", r.path, err)
	}

	byID := make(map[string]int, len(promotions))
	for i, p := range promotions {
		byID[p.ID] = i
	}

	r.mu.Lock()
	r.promotions = promotions
	r.byID = byID
	r.mu.Unlock()
	return nil
}

// Parse decodes a catalog document. Active entries must be well formed, and
// ids must be unique.
func Parse(data []byte) ([]domain.Promotion, error) {
	var doc catalogDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(doc.Promotions))
	promotions := make([]domain.Promotion, 0, len(doc.Promotions))
	for i := range doc.Promotions {
		p, err := doc.Promotions[i].toDomain()
		if err != nil {
			return nil, err
		}
		if p.ID == "" {
			return nil, fmt.Errorf("promotion #%d: id is required", i+1)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("promotion %s: duplicate id", p.ID)
		}
		seen[p.ID] = struct{}{}
		if !domain.IsValidStatus(p.Status) {
			return nil, fmt.Errorf("promotion %s: unknown status %q", p.ID, p.Status)
		}
		if p.IsActive() {
			if err := p.Validate(); err != nil {
				return nil, err
			}
		}
		promotions = append(promotions, p)
	}
	return promotions, nil
}

// ListActive returns the active promotions in file order.
func (r *PromotionRepository) ListActive(_ context.Context) ([]domain.Promotion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := []domain.Promotion{}
	for _, p := range r.promotions {
		if p.IsActive() {
			active = append(active, p)
		}
	}
	return active, nil
}

// GetByID returns the promotion with the given id.
func (r *PromotionRepository) GetByID(_ context.Context, id string) (*domain.Promotion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("promotion", id)
	}
	p := r.promotions[i]
	return &p, nil
}
