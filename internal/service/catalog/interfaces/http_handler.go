package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"academy/internal/service/catalog/application"
	"academy/internal/service/catalog/domain"
)

// CatalogHandler 封装 catalog 服务的 HTTP 处理器
type CatalogHandler struct {
	service *application.CatalogService
}

func NewCatalogHandler(service *application.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *CatalogHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/courses/get", h.handleGetCourse)
	mux.HandleFunc("/courses/list", h.handleListCourses)
	mux.HandleFunc("/admin/courses/create", h.handleCreateCourse)
	mux.HandleFunc("/admin/courses/update", h.handleUpdateCourse)
	mux.HandleFunc("/admin/courses/delete", h.handleDeleteCourse)
}

func extract(r *http.Request) context.Context {
	propagator := otel.GetTextMapPropagator()
	return propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}

func (h *CatalogHandler) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid course id", http.StatusBadRequest)
		return
	}

	dto, err := h.service.GetCourse(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, dto)
}

func (h *CatalogHandler) handleListCourses(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	dtos, err := h.service.ListCourses(ctx, offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, dtos)
}

func (h *CatalogHandler) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)

	var req application.SaveCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	dto, err := h.service.CreateCourse(ctx, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, dto)
}

func (h *CatalogHandler) handleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)

	var req application.SaveCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	dto, err := h.service.UpdateCourse(ctx, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, dto)
}

func (h *CatalogHandler) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid course id", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteCourse(ctx, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrCourseNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidCourse):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
