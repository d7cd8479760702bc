package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/vitashop/checkout/internal/core/domain"
	"github.com/vitashop/checkout/internal/core/service"
	"github.com/vitashop/checkout/internal/port"
)

// AuthFunc resolves the current user from a request. The default reads the
// X-User-ID header set by the auth gateway upstream of this service.
type AuthFunc func(r *http.Request) (string, bool)

func HeaderAuth(r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-ID")
	return userID, userID != ""
}

type HTTPHandler struct {
	placement  *service.PlacementCoordinator
	settlement *service.SettlementHandler
	carts      port.CartRepository
	auth       AuthFunc
	logger     *zap.Logger
}

func NewHTTPHandler(
	placement *service.PlacementCoordinator,
	settlement *service.SettlementHandler,
	carts port.CartRepository,
	auth AuthFunc,
	logger *zap.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		placement:  placement,
		settlement: settlement,
		carts:      carts,
		auth:       auth,
		logger:     logger,
	}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/api/checkout", h.Checkout)
	mux.HandleFunc("/api/cart/items", h.CartItems)
	mux.HandleFunc("/webhooks/payment/", h.PaymentWebhook)
}

type checkoutResponse struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message,omitempty"`
	OrderID    string            `json:"order_id,omitempty"`
	TotalCents int64             `json:"total_cents,omitempty"`
	Status     string            `json:"status,omitempty"`
	LineItems  []domain.LineItem `json:"line_items,omitempty"`
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := h.auth(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, checkoutResponse{Success: false, Message: "missing user identity"})
		return
	}

	order, err := h.placement.PlaceOrder(r.Context(), userID)
	if err != nil {
		status := http.StatusInternalServerError
		message := "internal error"

		var insufficient *domain.InsufficientStockError
		switch {
		case errors.As(err, &insufficient):
			status = http.StatusConflict
			message = insufficient.Error()
		case errors.Is(err, domain.ErrEmptyCart):
			status = http.StatusBadRequest
			message = "cart is empty"
		case errors.Is(err, domain.ErrValidation):
			status = http.StatusBadRequest
			message = err.Error()
		default:
			h.logger.Error("checkout failed", zap.String("user_id", userID), zap.Error(err))
		}

		writeJSON(w, status, checkoutResponse{Success: false, Message: message})
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{
		Success:    true,
		OrderID:    order.ID,
		TotalCents: order.TotalCents,
		Status:     string(order.Status),
		LineItems:  order.LineItems,
	})
}

type cartItemRequest struct {
	ProductID      string `json:"product_id"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents,omitempty"`
}

func (h *HTTPHandler) CartItems(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.auth(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "missing user identity"})
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req cartItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" || req.Quantity <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
			return
		}
		err := h.carts.AddItem(r.Context(), domain.CartItem{
			UserID:         userID,
			ProductID:      req.ProductID,
			Quantity:       req.Quantity,
			UnitPriceCents: req.UnitPriceCents,
		})
		if err != nil {
			h.cartError(w, userID, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]bool{"success": true})

	case http.MethodPut:
		var req cartItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
			return
		}
		if err := h.carts.UpdateQuantity(r.Context(), userID, req.ProductID, req.Quantity); err != nil {
			h.cartError(w, userID, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	case http.MethodDelete:
		productID := r.URL.Query().Get("product_id")
		if productID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "missing product_id"})
			return
		}
		if err := h.carts.RemoveItem(r.Context(), userID, productID); err != nil {
			h.cartError(w, userID, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *HTTPHandler) cartError(w http.ResponseWriter, userID string, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "cart item not found"})
	default:
		h.logger.Error("cart operation failed", zap.String("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
	}
}

type webhookRequest struct {
	ProviderEventID string `json:"provider_event_id"`
	Type            string `json:"type"`
	Data            struct {
		OrderReference string `json:"order_reference"`
		Status         string `json:"status"`
		TransactionID  string `json:"transaction_id"`
	} `json:"data"`
}

// PaymentWebhook accepts provider notifications at
// /webhooks/payment/{provider}. Any outcome that should suppress the
// provider's retry gets a 200; non-2xx is reserved for transient
// infrastructure failure so the provider's own retry policy redelivers.
func (h *HTTPHandler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	provider := strings.TrimPrefix(r.URL.Path, "/webhooks/payment/")
	if strings.Contains(provider, "/") {
		http.NotFound(w, r)
		return
	}

	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, service.SettlementResult{})
		return
	}

	result, err := h.settlement.Handle(r.Context(), domain.PaymentEvent{
		Provider:      provider,
		EventID:       req.ProviderEventID,
		Type:          req.Type,
		OrderRef:      req.Data.OrderReference,
		Status:        req.Data.Status,
		TransactionID: req.Data.TransactionID,
	})
	if err != nil {
		h.logger.Error("webhook settlement failed",
			zap.String("provider", provider),
			zap.String("event_id", req.ProviderEventID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, service.SettlementResult{})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
