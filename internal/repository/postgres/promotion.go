package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/pos-promotions/internal/domain"
	"github.com/utafrali/pos-promotions/pkg/database"
	apperrors "github.com/utafrali/pos-promotions/pkg/errors"
)

const promotionColumns = `id, name, description, priority, stackable, status, rule, constraints`

// PromotionRepository implements repository.PromotionRepository using PostgreSQL.
type PromotionRepository struct {
	db database.DBTX
}

// NewPromotionRepository creates a new PostgreSQL-backed promotion catalog.
func NewPromotionRepository(db database.DBTX) *PromotionRepository {
	return &PromotionRepository{db: db}
}

// ListActive returns every active promotion ordered by priority.
func (r *PromotionRepository) ListActive(ctx context.Context) (_ []domain.Promotion, err error) {
	query := `
		SELECT ` + promotionColumns + `
		FROM promotions
		WHERE status = $1
		ORDER BY priority ASC, id ASC`

	ctx, end := database.TraceQuery(ctx, "ListActivePromotions", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, domain.PromotionStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active promotions: %w", err)
	}
	defer rows.Close()

	promotions := []domain.Promotion{}
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, err
		}
		promotions = append(promotions, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate promotions: %w", err)
	}

	return promotions, nil
}

// GetByID retrieves a promotion by its ID.
func (r *PromotionRepository) GetByID(ctx context.Context, id string) (_ *domain.Promotion, err error) {
	query := `
		SELECT ` + promotionColumns + `
		FROM promotions
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetPromotionByID", query)
	defer func() { end(err) }()

	p, err := scanPromotion(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("promotion", id)
		}
		return nil, err
	}
	return p, nil
}

// scanPromotion decodes one row. The rule and constraints columns are JSONB
// documents using the same field names as the API.
func scanPromotion(row pgx.Row) (*domain.Promotion, error) {
	var (
		p               domain.Promotion
		ruleJSON        []byte
		constraintsJSON []byte
	)

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Priority,
		&p.Stackable,
		&p.Status,
		&ruleJSON,
		&constraintsJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan promotion: %w", err)
	}

	if len(ruleJSON) > 0 && string(ruleJSON) != "null" {
		p.Rule = &domain.Rule{}
		if err := json.Unmarshal(ruleJSON, p.Rule); err != nil {
			return nil, fmt.Errorf("unmarshal rule of promotion %s: %w", p.ID, err)
		}
	}
	if len(constraintsJSON) > 0 {
		if err := json.Unmarshal(constraintsJSON, &p.Constraints); err != nil {
			return nil, fmt.Errorf("unmarshal constraints of promotion %s: %w", p.ID, err)
		}
		if !p.Constraints.HasCondition() {
			p.Constraints.Condition = nil
		}
	}

	return &p, nil
}
