// internal/service/transaction/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"stockledger/internal/pkg/logger"
	"stockledger/internal/service/transaction/application"
	"stockledger/internal/service/transaction/domain"
)

// TransactionHandler 封装了 transaction 服务的 HTTP 处理器
type TransactionHandler struct {
	service *application.TransactionService
}

// NewTransactionHandler 创建一个新的 HTTP 处理器实例
func NewTransactionHandler(service *application.TransactionService) *TransactionHandler {
	return &TransactionHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *TransactionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /transactions", h.handleGetAll)
	mux.HandleFunc("GET /transactions/filter", h.handleFilter)
	mux.HandleFunc("GET /transactions/product/{productId}", h.handleGetByProduct)
	mux.HandleFunc("GET /transactions/{id}", h.handleGetByID)
	mux.HandleFunc("POST /transactions", h.handleCreate)
	mux.HandleFunc("PUT /transactions/{id}", h.handleUpdate)
	mux.HandleFunc("DELETE /transactions/{id}", h.handleDelete)
}

type errorResponse struct {
	Message string `json:"message"`
	TraceID string `json:"traceId,omitempty"`
}

// writeError 把协调器的错误分类映射到 HTTP 状态码：
// 校验/业务规则 -> 400，不存在 -> 404，远端不可用 -> 502，
// 其余 -> 500 并带上可供排障的追踪标识。
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrInvalidTransactionType),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrStockRejected):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrProductNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrStockUnavailable):
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}

	resp := errorResponse{Message: err.Error()}
	if status == http.StatusInternalServerError {
		resp.TraceID = uuid.New().String()
		resp.Message = "internal error"
		logger.Ctx(r.Context()).Error().Err(err).Str("error_trace_id", resp.TraceID).Msg("unexpected error")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func extractCtx(r *http.Request) *http.Request {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	return r.WithContext(ctx)
}

func (h *TransactionHandler) handleGetAll(w http.ResponseWriter, r *http.Request) {
	r = extractCtx(r)
	dtos, err := h.service.GetAllTransactions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *TransactionHandler) handleGetByID(w http.ResponseWriter, r *http.Request) {
	r = extractCtx(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid transaction id"})
		return
	}

	dto, err := h.service.GetTransactionByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if dto == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "transaction not found"})
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

func (h *TransactionHandler) handleFilter(w http.ResponseWriter, r *http.Request) {
	r = extractCtx(r)
	req := &application.FilterTransactionsRequest{
		Type: r.URL.Query().Get("type"),
	}

	if raw := r.URL.Query().Get("startDate"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid startDate, expected RFC3339"})
			return
		}
		req.StartDate = &t
	}
	if raw := r.URL.Query().Get("endDate"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid endDate, expected RFC3339"})
			return
		}
		req.EndDate = &t
	}
	if raw := r.URL.Query().Get("productId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid productId"})
			return
		}
		req.ProductID = &id
	}

	dtos, err := h.service.FilterTransactions(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *TransactionHandler) handleGetByProduct(w http.ResponseWriter, r *http.Request) {
	r = extractCtx(r)
	productID, err := strconv.ParseInt(r.PathValue("productId"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid product id"})
		return
	}

	dtos, err := h.service.GetTransactionsByProductID(r.Context(), productID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *TransactionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	r = extractCtx(r)
	var req application.CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}

	dto, err := h.service.CreateTransaction(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

func (h *TransactionHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	r = extractCtx(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid transaction id"})
		return
	}

	var req application.UpdateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}
	if req.ID != 0 && req.ID != id {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "id in URL does not match id in request body"})
		return
	}
	req.ID = id

	ok, err := h.service.UpdateTransaction(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "transaction not found or update rejected"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "transaction updated successfully"})
}

func (h *TransactionHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	r = extractCtx(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid transaction id"})
		return
	}

	ok, err := h.service.DeleteTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "transaction not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "transaction deleted successfully"})
}
