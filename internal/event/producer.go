package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/utafrali/pos-promotions/internal/domain"
	pkgkafka "github.com/utafrali/pos-promotions/pkg/kafka"
	"github.com/utafrali/pos-promotions/pkg/logger"
)

// TopicPromotionEvaluated carries one message per evaluation with an order id.
var TopicPromotionEvaluated = pkgkafka.Topic("promotion", "evaluated")

// Aggregate type constant.
const AggregateTypeOrder = "order"

// Source identifier for events originating from the promotions service.
const SourcePromotionService = "promotion-service"

// PromotionEvaluatedData is the payload for a promotion.evaluated event.
// Amounts are decimal strings with two places.
type PromotionEvaluatedData struct {
	OrderID              string                    `json:"order_id"`
	OrderType            string                    `json:"order_type,omitempty"`
	Subtotal             string                    `json:"subtotal"`
	TotalDiscount        string                    `json:"total_discount"`
	AppliedPromotions    []AppliedPromotionData    `json:"applied_promotions"`
	IneligiblePromotions []IneligiblePromotionData `json:"ineligible_promotions"`
}

// AppliedPromotionData is one applied promotion within the payload.
type AppliedPromotionData struct {
	PromotionID    string `json:"promotion_id"`
	DiscountAmount string `json:"discount_amount"`
}

// IneligiblePromotionData is one rejected promotion within the payload.
type IneligiblePromotionData struct {
	PromotionID string `json:"promotion_id"`
	Code        string `json:"code"`
}

// publisher is the part of pkgkafka.Producer the event producer uses.
type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes promotion domain events to Kafka.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer for the promotions service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishPromotionEvaluated publishes a promotion.evaluated event keyed by
// the order ID.
func (p *Producer) PublishPromotionEvaluated(ctx context.Context, orderID, orderType string, result *domain.EvaluationResult) error {
	data := PromotionEvaluatedData{
		OrderID:              orderID,
		OrderType:            orderType,
		Subtotal:             money(result.Subtotal),
		TotalDiscount:        money(result.TotalDiscount),
		AppliedPromotions:    make([]AppliedPromotionData, 0, len(result.AppliedPromotions)),
		IneligiblePromotions: make([]IneligiblePromotionData, 0, len(result.IneligiblePromotions)),
	}
	for _, a := range result.AppliedPromotions {
		data.AppliedPromotions = append(data.AppliedPromotions, AppliedPromotionData{
			PromotionID:    a.PromotionID,
			DiscountAmount: money(a.DiscountAmount),
		})
	}
	for _, i := range result.IneligiblePromotions {
		data.IneligiblePromotions = append(data.IneligiblePromotions, IneligiblePromotionData{
			PromotionID: i.PromotionID,
			Code:        i.Code,
		})
	}

	event, err := pkgkafka.NewEvent(TopicPromotionEvaluated, orderID, AggregateTypeOrder, SourcePromotionService, data)
	if err != nil {
		return fmt.Errorf("create promotion.evaluated event: %w", err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}
	if terminal := logger.TerminalIDFromContext(ctx); terminal != "" {
		event.WithMetadata("terminal_id", terminal)
	}

	if err := p.kafka.Publish(ctx, TopicPromotionEvaluated, event); err != nil {
		return fmt.Errorf("publish promotion.evaluated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published promotion.evaluated event",
		slog.String("order_id", orderID),
		slog.Int("applied", len(data.AppliedPromotions)),
	)

	return nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// NoopPublisher drops every event. It stands in for the producer when Kafka
// is disabled.
type NoopPublisher struct{}

// PublishPromotionEvaluated does nothing.
func (NoopPublisher) PublishPromotionEvaluated(context.Context, string, string, *domain.EvaluationResult) error {
	return nil
}
