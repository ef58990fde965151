package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-warehouse-orders/internal/auth"
	"github.com/ariefcatur/go-warehouse-orders/internal/orders"
	"go.uber.org/zap"
)

// Envelope is the body of every response.
type Envelope struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Code    string           `json:"code,omitempty"`
	Data    any              `json:"data,omitempty"`
	Meta    *orders.PageMeta `json:"meta,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func ok(w http.ResponseWriter, code int, msg string, data any) {
	writeJSON(w, code, Envelope{Success: true, Message: msg, Data: data})
}

func okPage(w http.ResponseWriter, msg string, data any, meta orders.PageMeta) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Message: msg, Data: data, Meta: &meta})
}

func fail(w http.ResponseWriter, status int, code, msg string, data any) {
	writeJSON(w, status, Envelope{Success: false, Message: msg, Code: code, Data: data})
}

// writeError maps domain errors onto status codes. Unknown errors are logged
// and answered with a generic 500.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var (
		ve *orders.ValidationError
		se *orders.StockError
	)
	switch {
	case errors.As(err, &ve):
		fail(w, http.StatusBadRequest, orders.CodeValidation, ve.Error(), map[string]string{"field": ve.Field})
	case errors.As(err, &se):
		fail(w, http.StatusConflict, orders.CodeInsufficientStock, se.Error(), se.Details)
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		fail(w, http.StatusUnauthorized, orders.CodeUnauthorized, err.Error(), nil)
	case errors.Is(err, auth.ErrForbidden):
		fail(w, http.StatusForbidden, orders.CodeForbidden, err.Error(), nil)
	case errors.Is(err, orders.ErrNotFound):
		fail(w, http.StatusNotFound, orders.CodeNotFound, err.Error(), nil)
	case errors.Is(err, orders.ErrWarehouseInactive):
		fail(w, http.StatusBadRequest, orders.CodeValidation, err.Error(), map[string]string{"field": "warehouse_id"})
	case errors.Is(err, orders.ErrInvalidTransition):
		fail(w, http.StatusConflict, orders.CodeInvalidTransition, err.Error(), nil)
	case errors.Is(err, orders.ErrConflict), errors.Is(err, orders.ErrInvalidState):
		fail(w, http.StatusConflict, orders.CodeConflict, err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		fail(w, http.StatusGatewayTimeout, orders.CodeTimeout, "request timed out", nil)
	default:
		log.Error("request failed", zap.Error(err))
		fail(w, http.StatusInternalServerError, orders.CodeInternal, "internal server error", nil)
	}
}

func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return &orders.ValidationError{Message: "invalid json", Err: err}
	}
	return nil
}

func pageFrom(r *http.Request) orders.Page {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return orders.Page{Page: page, Limit: limit}.Normalize()
}
