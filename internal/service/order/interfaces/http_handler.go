package interfaces

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"academy/internal/service/order/application"
	"academy/internal/service/order/domain"
)

// OrderHandler 封装了 order 服务的 HTTP 处理器
type OrderHandler struct {
	orderService      *application.OrderApplicationService
	settlementService *application.SettlementService
}

// NewOrderHandler 创建一个新的 HTTP 处理器实例
func NewOrderHandler(orderService *application.OrderApplicationService, settlementService *application.SettlementService) *OrderHandler {
	return &OrderHandler{
		orderService:      orderService,
		settlementService: settlementService,
	}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/create_order", h.handleCreateOrder)
	mux.HandleFunc("/settle_payment", h.handleSettlePayment)
	mux.HandleFunc("/orders/get", h.handleGetOrder)
}

func (h *OrderHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	var req application.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.orderService.CreateOrder(ctx, &req)
	if err != nil {
		var statusCode int
		switch {
		case errors.Is(err, domain.ErrAlreadyEnrolled):
			statusCode = http.StatusConflict
		case errors.Is(err, domain.ErrCouponRejected):
			statusCode = http.StatusForbidden
		default:
			statusCode = http.StatusInternalServerError
		}
		http.Error(w, err.Error(), statusCode)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleSettlePayment 是支付网关回调（webhook）的入口。
// 网关会重试回调，重复调用返回首次结算的结果。
func (h *OrderHandler) handleSettlePayment(w http.ResponseWriter, r *http.Request) {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	var req application.SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.settlementService.Settle(ctx, &req)
	if err != nil {
		var statusCode int
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			statusCode = http.StatusNotFound
		default:
			// 瞬时错误让网关稍后重试回调
			statusCode = http.StatusInternalServerError
		}
		http.Error(w, err.Error(), statusCode)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	orderID := r.URL.Query().Get("id")
	if orderID == "" {
		http.Error(w, "Missing order id", http.StatusBadRequest)
		return
	}

	resp, err := h.orderService.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
