package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/pos-promotions/internal/domain"
	apperrors "github.com/utafrali/pos-promotions/pkg/errors"
)

const cartKeyPrefix = "cart:"

// CartRepository implements repository.CartRepository using Redis. Snapshots
// are written by the order terminals; this service only reads them.
type CartRepository struct {
	client redis.UniversalClient
}

// NewCartRepository creates a new Redis-backed cart reader.
func NewCartRepository(client redis.UniversalClient) *CartRepository {
	return &CartRepository{client: client}
}

// Get retrieves a cart snapshot by ID.
func (r *CartRepository) Get(ctx context.Context, id string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cartKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("cart", id)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	if cart.ID == "" {
		cart.ID = id
	}

	return &cart, nil
}
