package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-warehouse-orders/internal/inventory"
	"github.com/ariefcatur/go-warehouse-orders/internal/orders"
	"github.com/ariefcatur/go-warehouse-orders/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type OrdersHandler struct {
	Engine *inventory.Service
	Redis  *redis.Client
	Log    *zap.Logger
}

// CreateOrderReq mirrors the checkout form. expires_at is accepted for
// compatibility and ignored: the server sets the deadline.
type CreateOrderReq struct {
	inventory.CreateOrderInput
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type statusReq struct {
	Status orders.Status `json:"status"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Get("/orders", h.listOrders)
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getStatus)
	r.Put("/orders/{id}/status", h.updateStatus)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pg := pageFrom(r)
	f := orders.OrderFilter{
		WarehouseID: firstOf(q.Get("warehouse_id"), q.Get("warehouseId")),
		Status:      orders.Status(q.Get("status")),
		Page:        pg,
	}
	if f.Status != "" && !f.Status.Valid() {
		writeError(w, h.Log, orders.Invalid("status", fmt.Sprintf("unknown status %q", f.Status)))
		return
	}
	list, total, err := h.Engine.ListOrders(r.Context(), f)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	okPage(w, "orders retrieved", list, orders.NewPageMeta(pg, total))
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	in := req.CreateOrderInput
	in.CreatedBy = actor(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Fast-path idempotency via Redis (DB tetap jadi kebenaran)
	if in.OrderNumber != "" {
		if id, hit, err := redisx.LookupOrderNumber(ctx, h.Redis, in.OrderNumber); err != nil {
			h.Log.Warn("idempotency lookup failed", zap.Error(err))
		} else if hit {
			o, err := h.Engine.GetOrder(ctx, id)
			if err == nil {
				ok(w, http.StatusOK, "order already exists", o)
				return
			}
			if !errors.Is(err, orders.ErrNotFound) {
				writeError(w, h.Log, err)
				return
			}
		}
	}

	o, existed, err := h.Engine.CreateOrder(ctx, in)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	if err := redisx.RememberOrderNumber(ctx, h.Redis, o.OrderNumber, o.ID); err != nil {
		h.Log.Warn("idempotency store failed", zap.Error(err))
	}
	h.cacheStatus(ctx, o)
	if existed {
		ok(w, http.StatusOK, "order already exists", o)
		return
	}
	invalidateDashboard(ctx, h.Redis, h.Log)
	ok(w, http.StatusCreated, "order created", o)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Engine.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "order retrieved", o)
}

// getStatus serves the cached status unless it may be stale: a pending order
// past its deadline always goes to the engine so expiry is applied.
func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	e, hit, err := redisx.CachedOrderStatus(ctx, h.Redis, orderID)
	if err != nil {
		h.Log.Warn("status cache read failed", zap.Error(err))
	}
	if hit && !(e.Status == string(orders.StatusPendingPayment) && time.Now().After(e.ExpiresAt)) {
		ok(w, http.StatusOK, "order status", e)
		return
	}

	// 2) fallback ke engine
	o, err := h.Engine.GetOrder(ctx, orderID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.cacheStatus(ctx, o)
	ok(w, http.StatusOK, "order status", statusEntry(o))
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	o, err := h.Engine.TransitionOrder(r.Context(), chi.URLParam(r, "id"), req.Status, actor(r.Context()))
	if o.ID != "" {
		// expiry on read is committed even when the requested change is rejected
		h.cacheStatus(r.Context(), o)
		invalidateDashboard(r.Context(), h.Redis, h.Log)
	}
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "order status updated", o)
}

func statusEntry(o orders.Order) redisx.StatusEntry {
	return redisx.StatusEntry{Status: string(o.Status), UpdatedAt: o.UpdatedAt, ExpiresAt: o.ExpiresAt}
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, o orders.Order) {
	if err := redisx.CacheOrderStatus(ctx, h.Redis, o.ID, statusEntry(o)); err != nil {
		h.Log.Warn("status cache write failed", zap.String("order_id", o.ID), zap.Error(err))
	}
}
