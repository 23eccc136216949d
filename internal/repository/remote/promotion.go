// Package remote reads the promotions catalog from the back-office catalog
// service over HTTP.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/utafrali/pos-promotions/internal/domain"
	apperrors "github.com/utafrali/pos-promotions/pkg/errors"
	"github.com/utafrali/pos-promotions/pkg/httpclient"
)

const upstreamName = "promotion catalog"

// envelope is the {data: ...} wrapper used by the catalog service.
type envelope[T any] struct {
	Data T `json:"data"`
}

// PromotionRepository implements repository.PromotionRepository against the
// catalog service. The last successful active list is kept and served while
// the catalog is unreachable, so tills keep discounting during an outage.
type PromotionRepository struct {
	baseURL string
	client  *httpclient.CircuitBreakerClient
	logger  *slog.Logger

	mu        sync.RWMutex
	lastKnown []domain.Promotion
}

// NewPromotionRepository creates a catalog client rooted at baseURL.
func NewPromotionRepository(baseURL string, client *httpclient.CircuitBreakerClient, logger *slog.Logger) *PromotionRepository {
	return &PromotionRepository{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

// ListActive fetches the active promotions.
func (r *PromotionRepository) ListActive(ctx context.Context) ([]domain.Promotion, error) {
	var body envelope[[]domain.Promotion]
	err := r.get(ctx, "/api/v1/promotions?status="+url.QueryEscape(domain.PromotionStatusActive), &body)
	if err != nil {
		if stale, ok := r.stale(); ok && apperrors.HTTPStatus(err) >= http.StatusInternalServerError {
			r.logger.WarnContext(ctx, "promotion catalog unreachable, serving last known catalog",
				slog.Int("promotions", len(stale)),
				slog.String("error", err.Error()),
			)
			return stale, nil
		}
		return nil, err
	}

	active := make([]domain.Promotion, 0, len(body.Data))
	for _, p := range body.Data {
		if p.IsActive() {
			active = append(active, p)
		}
	}

	r.mu.Lock()
	r.lastKnown = active
	r.mu.Unlock()

	return active, nil
}

// GetByID fetches a single promotion.
func (r *PromotionRepository) GetByID(ctx context.Context, id string) (*domain.Promotion, error) {
	var body envelope[*domain.Promotion]
	if err := r.get(ctx, "/api/v1/promotions/"+url.PathEscape(id), &body); err != nil {
		return nil, err
	}
	if body.Data == nil {
		return nil, apperrors.NotFound("promotion", id)
	}
	return body.Data, nil
}

// Ping checks that the catalog service answers its liveness probe.
func (r *PromotionRepository) Ping(ctx context.Context) error {
	resp, err := r.client.Get(ctx, r.baseURL+"/health/live")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s health returned status %d", upstreamName, resp.StatusCode)
	}
	return nil
}

func (r *PromotionRepository) stale() ([]domain.Promotion, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastKnown, r.lastKnown != nil
}

func (r *PromotionRepository) get(ctx context.Context, path string, dst any) error {
	resp, err := r.client.Get(ctx, r.baseURL+path)
	if err != nil {
		return apperrors.Unavailable(upstreamName+" unavailable", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := httpclient.ParseResponseError(resp, upstreamName)
		if apperrors.HTTPStatus(err) >= http.StatusInternalServerError {
			return apperrors.Unavailable(upstreamName+" unavailable", err)
		}
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s response: %w", upstreamName, err)
	}
	return nil
}
