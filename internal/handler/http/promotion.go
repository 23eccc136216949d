package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/pos-promotions/internal/domain"
	"github.com/utafrali/pos-promotions/internal/service"
	"github.com/utafrali/pos-promotions/pkg/httputil"
	"github.com/utafrali/pos-promotions/pkg/validator"
)

const maxBodyBytes = 1 << 20

// PromotionHandler handles HTTP requests for promotion endpoints.
type PromotionHandler struct {
	service *service.PromotionService
	logger  *slog.Logger
}

// NewPromotionHandler creates a new promotion HTTP handler.
func NewPromotionHandler(svc *service.PromotionService, logger *slog.Logger) *PromotionHandler {
	return &PromotionHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// EvaluateRequest is the JSON request body for evaluating a cart.
type EvaluateRequest struct {
	Items []CartItemRequest `json:"items" validate:"dive"`

	// Promotions, when present, replace the active catalog for this call.
	Promotions []domain.Promotion `json:"promotions"`

	OrderType string `json:"order_type" validate:"omitempty,max=50"`
	OrderID   string `json:"order_id" validate:"omitempty,max=100"`
}

// CartItemRequest is one cart line in an evaluation request.
type CartItemRequest struct {
	ID        string            `json:"id" validate:"required,max=100"`
	ProductID string            `json:"product_id" validate:"max=100"`
	VariantID string            `json:"variant_id" validate:"max=100"`
	Quantity  int               `json:"quantity" validate:"gte=1"`
	Price     decimal.Decimal   `json:"price"`
	Discount  decimal.Decimal   `json:"discount"`
	Tax       decimal.Decimal   `json:"tax"`
	Modifiers []domain.Modifier `json:"modifiers"`
	Product   domain.Product    `json:"product"`
}

// EvaluateCartRequest is the optional JSON body for evaluating a stored cart.
type EvaluateCartRequest struct {
	OrderType string `json:"order_type" validate:"omitempty,max=50"`
}

func (r *CartItemRequest) toDomain() domain.CartItem {
	return domain.CartItem{
		ID:        r.ID,
		ProductID: r.ProductID,
		VariantID: r.VariantID,
		Quantity:  r.Quantity,
		Price:     r.Price,
		Discount:  r.Discount,
		Tax:       r.Tax,
		Modifiers: r.Modifiers,
		Product:   r.Product,
	}
}

// --- Response DTOs ---

// EvaluationResponse renders amounts as fixed two-place strings.
type EvaluationResponse struct {
	Subtotal             string                       `json:"subtotal"`
	AppliedPromotions    []AppliedPromotionResponse   `json:"applied_promotions"`
	IneligiblePromotions []domain.IneligiblePromotion `json:"ineligible_promotions"`
	TotalDiscount        string                       `json:"total_discount"`
	Total                string                       `json:"total"`
}

// AppliedPromotionResponse is one applied promotion in an EvaluationResponse.
type AppliedPromotionResponse struct {
	PromotionID    string          `json:"promotion_id"`
	Name           string          `json:"name"`
	RuleType       domain.RuleType `json:"rule_type"`
	Stackable      bool            `json:"stackable"`
	EligibleAmount string          `json:"eligible_amount"`
	DiscountAmount string          `json:"discount_amount"`
}

func newEvaluationResponse(result *domain.EvaluationResult) EvaluationResponse {
	resp := EvaluationResponse{
		Subtotal:             result.Subtotal.StringFixed(2),
		AppliedPromotions:    make([]AppliedPromotionResponse, 0, len(result.AppliedPromotions)),
		IneligiblePromotions: result.IneligiblePromotions,
		TotalDiscount:        result.TotalDiscount.StringFixed(2),
		Total:                result.Subtotal.Sub(result.TotalDiscount).StringFixed(2),
	}
	for _, a := range result.AppliedPromotions {
		resp.AppliedPromotions = append(resp.AppliedPromotions, AppliedPromotionResponse{
			PromotionID:    a.PromotionID,
			Name:           a.Name,
			RuleType:       a.RuleType,
			Stackable:      a.Stackable,
			EligibleAmount: a.EligibleAmount.StringFixed(2),
			DiscountAmount: a.DiscountAmount.StringFixed(2),
		})
	}
	if resp.IneligiblePromotions == nil {
		resp.IneligiblePromotions = []domain.IneligiblePromotion{}
	}
	return resp
}

// --- Handlers ---

// Evaluate handles POST /api/v1/promotions/evaluate
func (h *PromotionHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req EvaluateRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	items := make([]domain.CartItem, 0, len(req.Items))
	for i := range req.Items {
		items = append(items, req.Items[i].toDomain())
	}

	result, err := h.service.Evaluate(r.Context(), &service.EvaluateInput{
		Items:      items,
		Promotions: req.Promotions,
		OrderType:  req.OrderType,
		OrderID:    req.OrderID,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, newEvaluationResponse(result))
}

// EvaluateCart handles POST /api/v1/carts/{cartId}/promotions/evaluate
func (h *PromotionHandler) EvaluateCart(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	cartID := chi.URLParam(r, "cartId")

	var req EvaluateCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteValidationError(w, r, fmt.Errorf("decode request body: %w", err))
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	result, err := h.service.EvaluateCart(r.Context(), cartID, req.OrderType)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, newEvaluationResponse(result))
}

// ListPromotions handles GET /api/v1/promotions
func (h *PromotionHandler) ListPromotions(w http.ResponseWriter, r *http.Request) {
	promotions, err := h.service.ListActivePromotions(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, promotions)
}

// GetPromotion handles GET /api/v1/promotions/{id}
func (h *PromotionHandler) GetPromotion(w http.ResponseWriter, r *http.Request) {
	promotion, err := h.service.GetPromotion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, promotion)
}
