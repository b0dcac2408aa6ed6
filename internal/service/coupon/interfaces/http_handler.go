package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"academy/internal/service/coupon/application"
	"academy/internal/service/coupon/domain"
)

// CouponHandler 封装了 coupon 服务的 HTTP 处理器
type CouponHandler struct {
	service *application.CouponService
}

// NewCouponHandler 创建一个新的 HTTP 处理器实例
func NewCouponHandler(service *application.CouponService) *CouponHandler {
	return &CouponHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *CouponHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/validate_coupon", h.handleValidate)

	mux.HandleFunc("/admin/coupons/create", h.handleCreate)
	mux.HandleFunc("/admin/coupons/update", h.handleUpdate)
	mux.HandleFunc("/admin/coupons/delete", h.handleDelete)
	mux.HandleFunc("/admin/coupons/get", h.handleGet)
	mux.HandleFunc("/admin/coupons/list", h.handleList)
}

func (h *CouponHandler) handleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)

	var req application.ValidateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// 校验拒绝不是错误：裁决作为 200 返回，reason 字段携带具体原因
	resp, err := h.service.Validate(ctx, &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, resp)
}

func (h *CouponHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)

	var dto application.CouponDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.CreateCoupon(ctx, &dto)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, resp)
}

func (h *CouponHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)

	var dto application.CouponDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.UpdateCoupon(ctx, &dto)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, resp)
}

func (h *CouponHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid coupon id", http.StatusBadRequest)
		return
	}
	if err := h.service.DeleteCoupon(ctx, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *CouponHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid coupon id", http.StatusBadRequest)
		return
	}
	resp, err := h.service.GetCoupon(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, resp)
}

func (h *CouponHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	resp, err := h.service.ListCoupons(ctx, offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, resp)
}

// writeError 根据错误类型返回不同的 HTTP 状态码
func writeError(w http.ResponseWriter, err error) {
	var statusCode int
	switch {
	case errors.Is(err, domain.ErrCouponNotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, domain.ErrCodeAlreadyExists):
		statusCode = http.StatusConflict
	default:
		statusCode = http.StatusInternalServerError
	}
	http.Error(w, err.Error(), statusCode)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func extract(r *http.Request) context.Context {
	propagator := otel.GetTextMapPropagator()
	return propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}
