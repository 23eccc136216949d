package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/pos-promotions/internal/domain"
	"github.com/utafrali/pos-promotions/internal/engine"
	"github.com/utafrali/pos-promotions/internal/repository"
	apperrors "github.com/utafrali/pos-promotions/pkg/errors"
	"github.com/utafrali/pos-promotions/pkg/tracing"
)

var tracer = tracing.Tracer("github.com/utafrali/pos-promotions/internal/service")

// EventPublisher publishes evaluation outcomes for downstream consumers
// (kitchen display, reporting).
type EventPublisher interface {
	PublishPromotionEvaluated(ctx context.Context, orderID, orderType string, result *domain.EvaluationResult) error
}

// PromotionService implements the business logic for promotion evaluation.
type PromotionService struct {
	catalog repository.PromotionRepository
	carts   repository.CartRepository
	events  EventPublisher
	logger  *slog.Logger
}

// NewPromotionService creates a new promotion service.
func NewPromotionService(
	catalog repository.PromotionRepository,
	carts repository.CartRepository,
	events EventPublisher,
	logger *slog.Logger,
) *PromotionService {
	return &PromotionService{
		catalog: catalog,
		carts:   carts,
		events:  events,
		logger:  logger,
	}
}

// EvaluateInput holds the parameters for evaluating a cart.
type EvaluateInput struct {
	Items []domain.CartItem

	// Promotions are the candidates to evaluate. Nil means the active
	// catalog; an empty non-nil slice evaluates against no promotions.
	Promotions []domain.Promotion

	OrderType string

	// OrderID, when set, publishes the result as a promotion.evaluated event.
	OrderID string
}

// Evaluate computes the promotions that apply to the given items.
func (s *PromotionService) Evaluate(ctx context.Context, input *EvaluateInput) (*domain.EvaluationResult, error) {
	ctx, span := tracer.Start(ctx, "PromotionService.Evaluate")
	defer span.End()

	promotions, source := input.Promotions, sourceRequest
	if promotions == nil {
		var err error
		promotions, err = s.catalog.ListActive(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "load catalog")
			evaluationsTotal.WithLabelValues(sourceCatalog, outcomeError).Inc()
			return nil, fmt.Errorf("load active promotions: %w", err)
		}
		source = sourceCatalog
	}

	result, err := s.evaluate(ctx, input.Items, promotions, input.OrderType, source)
	if err != nil {
		return nil, err
	}

	if input.OrderID != "" {
		s.publish(ctx, input.OrderID, input.OrderType, result)
	}
	return result, nil
}

// EvaluateCart evaluates a stored cart snapshot against the active catalog.
// An empty orderType falls back to the cart's own order type.
func (s *PromotionService) EvaluateCart(ctx context.Context, cartID, orderType string) (*domain.EvaluationResult, error) {
	ctx, span := tracer.Start(ctx, "PromotionService.EvaluateCart")
	defer span.End()
	span.SetAttributes(attribute.String("cart.id", cartID))

	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if orderType == "" {
		orderType = cart.OrderType
	}

	return s.Evaluate(ctx, &EvaluateInput{
		Items:     cart.Items,
		OrderType: orderType,
		OrderID:   cart.ID,
	})
}

// ListActivePromotions returns the active catalog.
func (s *PromotionService) ListActivePromotions(ctx context.Context) ([]domain.Promotion, error) {
	promotions, err := s.catalog.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active promotions: %w", err)
	}
	return promotions, nil
}

// GetPromotion returns a single catalog promotion.
func (s *PromotionService) GetPromotion(ctx context.Context, id string) (*domain.Promotion, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("promotion id is required")
	}
	return s.catalog.GetByID(ctx, id)
}

func (s *PromotionService) evaluate(
	ctx context.Context,
	items []domain.CartItem,
	promotions []domain.Promotion,
	orderType, source string,
) (*domain.EvaluationResult, error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("promotion.source", source),
		attribute.Int("promotion.candidates", len(promotions)),
		attribute.Int("cart.lines", len(items)),
		attribute.String("order.type", orderType),
	)

	start := time.Now()
	result, err := engine.Evaluate(engine.Input{
		Items:      items,
		Promotions: promotions,
		OrderType:  orderType,
	})
	evaluationDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluate")
		return nil, s.mapEngineError(ctx, err, source)
	}

	evaluationsTotal.WithLabelValues(source, outcomeOK).Inc()
	for _, a := range result.AppliedPromotions {
		promotionsAppliedTotal.WithLabelValues(a.PromotionID).Inc()
	}
	for _, i := range result.IneligiblePromotions {
		promotionsIneligibleTotal.WithLabelValues(i.Code).Inc()
	}

	span.SetAttributes(
		attribute.Int("promotion.applied", len(result.AppliedPromotions)),
		attribute.String("promotion.total_discount", result.TotalDiscount.StringFixed(2)),
	)
	return result, nil
}

// mapEngineError turns engine failures into API errors. A malformed cart or
// a malformed promotion supplied by the caller is the caller's fault; a
// malformed catalog promotion is ours.
func (s *PromotionService) mapEngineError(ctx context.Context, err error, source string) error {
	switch {
	case errors.Is(err, engine.ErrMalformedCartItem):
		evaluationsTotal.WithLabelValues(source, outcomeInvalid).Inc()
		return apperrors.InvalidInputf(err, "%s", err.Error())
	case errors.Is(err, engine.ErrMalformedPromotion) && source == sourceRequest:
		evaluationsTotal.WithLabelValues(source, outcomeInvalid).Inc()
		return apperrors.InvalidInputf(err, "%s", err.Error())
	default:
		evaluationsTotal.WithLabelValues(source, outcomeError).Inc()
		s.logger.ErrorContext(ctx, "promotion catalog failed evaluation",
			slog.String("source", source),
			slog.String("error", err.Error()),
		)
		return apperrors.Internal(err)
	}
}

func (s *PromotionService) publish(ctx context.Context, orderID, orderType string, result *domain.EvaluationResult) {
	if err := s.events.PublishPromotionEvaluated(ctx, orderID, orderType, result); err != nil {
		s.logger.WarnContext(ctx, "failed to publish promotion.evaluated event",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}
}
