package httpx

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-warehouse-orders/internal/inventory"
	"github.com/ariefcatur/go-warehouse-orders/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type TransactionsHandler struct {
	Engine *inventory.Service
	Store  orders.Reader
	Redis  *redis.Client
	Log    *zap.Logger
}

type InboundReq struct {
	ProductID       string `json:"product_id"`
	WarehouseID     string `json:"warehouse_id"`
	Quantity        int    `json:"quantity"`
	SupplierName    string `json:"supplier_name"`
	ReferenceNumber string `json:"reference_number"`
	Notes           string `json:"notes"`
}

type OutboundReq struct {
	ProductID       string `json:"product_id"`
	WarehouseID     string `json:"warehouse_id"`
	Quantity        int    `json:"quantity"`
	DestinationType string `json:"destination_type"`
	DestinationName string `json:"destination_name"`
	ReferenceNumber string `json:"reference_number"`
	Notes           string `json:"notes"`
}

type InboundRecord struct {
	ID              string    `json:"id"`
	ProductID       string    `json:"product_id"`
	ProductName     string    `json:"product_name,omitempty"`
	ProductSKU      string    `json:"product_sku,omitempty"`
	WarehouseID     string    `json:"warehouse_id"`
	Quantity        int       `json:"quantity"`
	SupplierName    string    `json:"supplier_name"`
	ReferenceNumber string    `json:"reference_number,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	ReceivedDate    time.Time `json:"received_date"`
	CreatedAt       time.Time `json:"created_at"`
	CreatedBy       string    `json:"created_by"`
}

type OutboundRecord struct {
	ID              string    `json:"id"`
	ProductID       string    `json:"product_id"`
	ProductName     string    `json:"product_name,omitempty"`
	ProductSKU      string    `json:"product_sku,omitempty"`
	WarehouseID     string    `json:"warehouse_id"`
	Quantity        int       `json:"quantity"`
	DestinationType string    `json:"destination_type"`
	DestinationName string    `json:"destination_name"`
	ReferenceNumber string    `json:"reference_number,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	ShippedDate     time.Time `json:"shipped_date"`
	CreatedAt       time.Time `json:"created_at"`
	CreatedBy       string    `json:"created_by"`
}

func toInbound(t orders.Transaction) InboundRecord {
	return InboundRecord{
		ID: t.ID, ProductID: t.ProductID, ProductName: t.ProductName, ProductSKU: t.SKU,
		WarehouseID: t.WarehouseID, Quantity: t.Quantity, SupplierName: t.Counterparty,
		ReferenceNumber: t.ReferenceNumber, Notes: t.Notes,
		ReceivedDate: t.CreatedAt, CreatedAt: t.CreatedAt, CreatedBy: t.CreatedBy,
	}
}

func toOutbound(t orders.Transaction) OutboundRecord {
	return OutboundRecord{
		ID: t.ID, ProductID: t.ProductID, ProductName: t.ProductName, ProductSKU: t.SKU,
		WarehouseID: t.WarehouseID, Quantity: t.Quantity,
		DestinationType: t.DestinationType, DestinationName: t.Counterparty,
		ReferenceNumber: t.ReferenceNumber, Notes: t.Notes,
		ShippedDate: t.CreatedAt, CreatedAt: t.CreatedAt, CreatedBy: t.CreatedBy,
	}
}

func (h *TransactionsHandler) Register(r chi.Router) {
	r.Get("/transactions", h.listTransactions)
	r.Post("/transactions", h.createTransaction)
	r.Get("/inbounds", h.listInbounds)
	r.Post("/inbounds", h.createInbound)
	r.Get("/outbounds", h.listOutbounds)
	r.Post("/outbounds", h.createOutbound)
}

// parseDate accepts RFC3339 or a plain date. A plain upper bound covers the
// whole day.
func parseDate(field, v string, upper bool) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, &orders.ValidationError{Field: field, Message: "expected YYYY-MM-DD or RFC3339", Err: err}
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func (h *TransactionsHandler) filterFrom(r *http.Request, typ orders.TransactionType) (orders.TransactionFilter, error) {
	q := r.URL.Query()
	f := orders.TransactionFilter{
		Type:        typ,
		WarehouseID: firstOf(q.Get("warehouseId"), q.Get("warehouse_id")),
		Page:        pageFrom(r),
	}
	if typ == "" && q.Get("type") != "" {
		f.Type = orders.TransactionType(q.Get("type"))
		if !f.Type.Valid() {
			return f, orders.Invalid("type", fmt.Sprintf("unknown transaction type %q", f.Type))
		}
	}
	var err error
	if f.DateFrom, err = parseDate("dateFrom", firstOf(q.Get("dateFrom"), q.Get("date_from")), false); err != nil {
		return f, err
	}
	if f.DateTo, err = parseDate("dateTo", firstOf(q.Get("dateTo"), q.Get("date_to")), true); err != nil {
		return f, err
	}
	return f, nil
}

func (h *TransactionsHandler) list(w http.ResponseWriter, r *http.Request, typ orders.TransactionType, view func(orders.Transaction) any) {
	f, err := h.filterFrom(r, typ)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	list, total, err := h.Store.ListTransactions(r.Context(), f)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	out := make([]any, 0, len(list))
	for _, t := range list {
		out = append(out, view(t))
	}
	okPage(w, "transactions retrieved", out, orders.NewPageMeta(f.Page, total))
}

func (h *TransactionsHandler) listTransactions(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "", func(t orders.Transaction) any { return t })
}

func (h *TransactionsHandler) listInbounds(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, orders.TxInbound, func(t orders.Transaction) any { return toInbound(t) })
}

func (h *TransactionsHandler) listOutbounds(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, orders.TxOutbound, func(t orders.Transaction) any { return toOutbound(t) })
}

func (h *TransactionsHandler) createTransaction(w http.ResponseWriter, r *http.Request) {
	var m inventory.Movement
	if err := decodeJSON(r, &m); err != nil {
		writeError(w, h.Log, err)
		return
	}
	m.CreatedBy = actor(r.Context())
	t, err := h.Engine.CreateTransaction(r.Context(), m)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	invalidateDashboard(r.Context(), h.Redis, h.Log)
	ok(w, http.StatusCreated, "transaction recorded", t)
}

func (h *TransactionsHandler) createInbound(w http.ResponseWriter, r *http.Request) {
	var req InboundReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	t, err := h.Engine.ReceiveInbound(r.Context(), inventory.Movement{
		Type:            orders.TxInbound,
		ProductID:       req.ProductID,
		Quantity:        req.Quantity,
		WarehouseID:     req.WarehouseID,
		ReferenceNumber: req.ReferenceNumber,
		Counterparty:    req.SupplierName,
		Notes:           req.Notes,
		CreatedBy:       actor(r.Context()),
	})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	invalidateDashboard(r.Context(), h.Redis, h.Log)
	ok(w, http.StatusCreated, "inbound recorded", toInbound(t))
}

func (h *TransactionsHandler) createOutbound(w http.ResponseWriter, r *http.Request) {
	var req OutboundReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	t, err := h.Engine.ShipOutbound(r.Context(), inventory.Movement{
		Type:            orders.TxOutbound,
		ProductID:       req.ProductID,
		Quantity:        req.Quantity,
		WarehouseID:     req.WarehouseID,
		ReferenceNumber: req.ReferenceNumber,
		Counterparty:    req.DestinationName,
		DestinationType: req.DestinationType,
		Notes:           req.Notes,
		CreatedBy:       actor(r.Context()),
	})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	invalidateDashboard(r.Context(), h.Redis, h.Log)
	ok(w, http.StatusCreated, "outbound recorded", toOutbound(t))
}
