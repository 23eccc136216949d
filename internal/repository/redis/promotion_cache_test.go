package redis

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/pos-promotions/internal/domain"
)

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) ListActive(ctx context.Context) ([]domain.Promotion, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Promotion), args.Error(1)
}

func (m *mockCatalog) GetByID(ctx context.Context, id string) (*domain.Promotion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Promotion), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func catalog() []domain.Promotion {
	return []domain.Promotion{{
		ID:       "promo-5off",
		Name:     "Five Off",
		Priority: 1,
		Status:   domain.PromotionStatusActive,
		Rule: &domain.Rule{
			Type:   domain.RuleTypeAmount,
			Value:  decimal.RequireFromString("5.00"),
			Target: &domain.Target{Type: domain.TargetTypeOrder},
		},
	}}
}

func TestPromotionCache_MissThenHit(t *testing.T) {
	client, mr := setupTestRedis(t)
	next := new(mockCatalog)
	next.On("ListActive", mock.Anything).Return(catalog(), nil).Once()

	cache := NewPromotionCache(next, client, time.Minute, discardLogger())

	first, err := cache.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.True(t, mr.Exists(activePromotionsKey))
	assert.Equal(t, time.Minute, mr.TTL(activePromotionsKey))

	second, err := cache.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "promo-5off", second[0].ID)
	assert.True(t, decimal.RequireFromString("5").Equal(second[0].Rule.Value))

	next.AssertExpectations(t)
}

func TestPromotionCache_ExpiresAfterTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	next := new(mockCatalog)
	next.On("ListActive", mock.Anything).Return(catalog(), nil).Twice()

	cache := NewPromotionCache(next, client, time.Minute, discardLogger())

	_, err := cache.ListActive(context.Background())
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, err = cache.ListActive(context.Background())
	require.NoError(t, err)

	next.AssertExpectations(t)
}

func TestPromotionCache_RedisDownFallsThrough(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.Close()
	next := new(mockCatalog)
	next.On("ListActive", mock.Anything).Return(catalog(), nil)

	promotions, err := NewPromotionCache(next, client, time.Minute, discardLogger()).ListActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, promotions, 1)
}

func TestPromotionCache_Invalidate(t *testing.T) {
	client, mr := setupTestRedis(t)
	next := new(mockCatalog)
	next.On("ListActive", mock.Anything).Return(catalog(), nil).Twice()

	cache := NewPromotionCache(next, client, time.Minute, discardLogger())
	_, err := cache.ListActive(context.Background())
	require.NoError(t, err)

	require.NoError(t, cache.Invalidate(context.Background()))
	assert.False(t, mr.Exists(activePromotionsKey))

	_, err = cache.ListActive(context.Background())
	require.NoError(t, err)
	next.AssertExpectations(t)
}

func TestPromotionCache_GetByIDPassesThrough(t *testing.T) {
	client, _ := setupTestRedis(t)
	next := new(mockCatalog)
	p := catalog()[0]
	next.On("GetByID", mock.Anything, "promo-5off").Return(&p, nil)

	got, err := NewPromotionCache(next, client, time.Minute, discardLogger()).GetByID(context.Background(), "promo-5off")
	require.NoError(t, err)
	assert.Equal(t, "Five Off", got.Name)
}
