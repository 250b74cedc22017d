// internal/service/product/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"stockledger/internal/pkg/logger"
	"stockledger/internal/service/product/application"
	"stockledger/internal/service/product/domain"
)

// ProductHandler 封装了 product 服务的 HTTP 处理器
type ProductHandler struct {
	service *application.ProductService
	hub     *Hub
}

// NewProductHandler 创建一个新的 HTTP 处理器实例
func NewProductHandler(service *application.ProductService, hub *Hub) *ProductHandler {
	return &ProductHandler{service: service, hub: hub}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *ProductHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /products", h.handleGetAll)
	mux.HandleFunc("GET /products/filter", h.handleFilter)
	mux.HandleFunc("GET /products/{id}", h.handleGetByID)
	mux.HandleFunc("POST /products", h.handleCreate)
	mux.HandleFunc("PUT /products/{id}", h.handleUpdate)
	mux.HandleFunc("DELETE /products/{id}", h.handleDelete)
	mux.HandleFunc("PATCH /products/{id}/stock", h.handleUpdateStock)
	if h.hub != nil {
		mux.HandleFunc("/ws/stock", h.hub.ServeWS)
	}
}

type errorResponse struct {
	Message string `json:"message"`
	TraceID string `json:"traceId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	traceID := uuid.New().String()
	logger.Ctx(r.Context()).Error().Err(err).Str("error_trace_id", traceID).Msg("unexpected error")
	writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal error", TraceID: traceID})
}

func extractCtx(r *http.Request) *http.Request {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	return r.WithContext(ctx)
}

func (h *ProductHandler) handleGetAll(w http.ResponseWriter, r *http.Request) {
	r = extractCtx(r)
	dtos, err := h.service.GetAllProducts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *ProductHandler) handleGetByID(w http.ResponseWriter, r *http.Request) {
	r = extractCtx(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid product id"})
		return
	}

	dto, err := h.service.GetProductByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if dto == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "product not found"})
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

func (h *ProductHandler) handleFilter(w http.ResponseWriter, r *http.Request) {
	r = extractCtx(r)
	q := r.URL.Query()
	req := &application.FilterProductsRequest{}

	if v := q.Get("name"); v != "" {
		req.Name = &v
	}
	if v := q.Get("category"); v != "" {
		req.Category = &v
	}
	var parseErr error
	if v := q.Get("minPrice"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			parseErr = err
		}
		req.MinPrice = &f
	}
	if v := q.Get("maxPrice"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			parseErr = err
		}
		req.MaxPrice = &f
	}
	if v := q.Get("minStock"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			parseErr = err
		}
		req.MinStock = &n
	}
	if v := q.Get("maxStock"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			parseErr = err
		}
		req.MaxStock = &n
	}
	if parseErr != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid filter parameter"})
		return
	}

	dtos, err := h.service.FilterProducts(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *ProductHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	r = extractCtx(r)
	var req application.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "name is required"})
		return
	}
	if req.Price < 0 || req.Stock < 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "price and stock must be non-negative"})
		return
	}

	dto, err := h.service.CreateProduct(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

func (h *ProductHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	r = extractCtx(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid product id"})
		return
	}

	var req application.UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}
	if req.ID != 0 && req.ID != id {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "id in URL does not match id in request body"})
		return
	}
	req.ID = id

	ok, err := h.service.UpdateProduct(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "product not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "product updated successfully"})
}

func (h *ProductHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	r = extractCtx(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid product id"})
		return
	}

	ok, err := h.service.DeleteProduct(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "product not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "product deleted successfully"})
}

// handleUpdateStock 是整个一致性协议依赖的受保护增量入口。
// 商品不存在与结果会为负是同一种 404 拒绝。
func (h *ProductHandler) handleUpdateStock(w http.ResponseWriter, r *http.Request) {
	r = extractCtx(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid product id"})
		return
	}

	var req application.StockUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}
	if req.ProductID != 0 && req.ProductID != id {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "id in URL does not match id in request body"})
		return
	}

	dto, err := h.service.AdjustStock(r.Context(), id, req.Quantity)
	if err != nil {
		if errors.Is(err, domain.ErrStockConflict) {
			writeJSON(w, http.StatusNotFound, errorResponse{
				Message: "product not found or stock update would result in negative stock",
			})
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}
