package repository

import (
	"context"

	"github.com/utafrali/pos-promotions/internal/domain"
)

// PromotionRepository is a read-only view of the promotions catalog.
// Promotions are authored elsewhere; the service never writes them.
type PromotionRepository interface {
	// ListActive returns the active promotions. The engine sorts them by
	// priority; promotions with equal priority keep the returned order.
	ListActive(ctx context.Context) ([]domain.Promotion, error)

	// GetByID retrieves a promotion by its unique identifier, whatever its status.
	GetByID(ctx context.Context, id string) (*domain.Promotion, error)
}

// CartRepository reads open order snapshots written by the order terminals.
type CartRepository interface {
	// Get retrieves a cart by its ID.
	Get(ctx context.Context, id string) (*domain.Cart, error)
}
