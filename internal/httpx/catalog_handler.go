package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-warehouse-orders/internal/catalog"
	"github.com/ariefcatur/go-warehouse-orders/internal/orders"
	"github.com/ariefcatur/go-warehouse-orders/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// invalidateDashboard drops the cached dashboard after a mutation.
func invalidateDashboard(ctx context.Context, rdb *redis.Client, log *zap.Logger) {
	if err := redisx.Del(ctx, rdb, redisx.KeyDashboardStats); err != nil {
		log.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

type ProductsHandler struct {
	Catalog *catalog.Service
	Redis   *redis.Client
	Log     *zap.Logger
}

func (h *ProductsHandler) Register(r chi.Router) {
	r.Get("/products", h.list)
	r.Post("/products", h.create)
	r.Get("/products/{id}", h.get)
	r.Put("/products/{id}", h.update)
	r.With(RequireRole(orders.RoleAdmin)).Delete("/products/{id}", h.delete)
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pg := pageFrom(r)
	f := orders.ProductFilter{
		Search:      q.Get("search"),
		WarehouseID: firstOf(q.Get("warehouse_id"), q.Get("warehouseId")),
		Category:    q.Get("category"),
		Page:        pg,
	}
	ps, total, err := h.Catalog.ListProducts(r.Context(), f)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	okPage(w, "products retrieved", ps, orders.NewPageMeta(pg, total))
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "product retrieved", p)
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.Log, err)
		return
	}
	in.CreatedBy = actor(r.Context())
	p, err := h.Catalog.CreateProduct(r.Context(), in)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	invalidateDashboard(r.Context(), h.Redis, h.Log)
	ok(w, http.StatusCreated, "product created", p)
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.Log, err)
		return
	}
	p, err := h.Catalog.UpdateProduct(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	invalidateDashboard(r.Context(), h.Redis, h.Log)
	ok(w, http.StatusOK, "product updated", p)
}

func (h *ProductsHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.Log, err)
		return
	}
	invalidateDashboard(r.Context(), h.Redis, h.Log)
	ok(w, http.StatusOK, "product deleted", nil)
}

type WarehousesHandler struct {
	Catalog *catalog.Service
	Redis   *redis.Client
	Log     *zap.Logger
}

func (h *WarehousesHandler) Register(r chi.Router) {
	r.Get("/warehouses", h.list)
	r.Get("/warehouses/{id}", h.get)
	r.Group(func(ar chi.Router) {
		ar.Use(RequireRole(orders.RoleAdmin))
		ar.Post("/warehouses", h.create)
		ar.Put("/warehouses/{id}", h.update)
		ar.Delete("/warehouses/{id}", h.delete)
	})
}

func (h *WarehousesHandler) list(w http.ResponseWriter, r *http.Request) {
	ws, err := h.Catalog.ListWarehouses(r.Context())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "warehouses retrieved", ws)
}

func (h *WarehousesHandler) get(w http.ResponseWriter, r *http.Request) {
	wh, err := h.Catalog.GetWarehouse(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "warehouse retrieved", wh)
}

func (h *WarehousesHandler) create(w http.ResponseWriter, r *http.Request) {
	var in catalog.WarehouseInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.Log, err)
		return
	}
	wh, err := h.Catalog.CreateWarehouse(r.Context(), in)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	invalidateDashboard(r.Context(), h.Redis, h.Log)
	ok(w, http.StatusCreated, "warehouse created", wh)
}

func (h *WarehousesHandler) update(w http.ResponseWriter, r *http.Request) {
	var in catalog.WarehouseInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.Log, err)
		return
	}
	wh, err := h.Catalog.UpdateWarehouse(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	invalidateDashboard(r.Context(), h.Redis, h.Log)
	ok(w, http.StatusOK, "warehouse updated", wh)
}

func (h *WarehousesHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.DeleteWarehouse(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.Log, err)
		return
	}
	invalidateDashboard(r.Context(), h.Redis, h.Log)
	ok(w, http.StatusOK, "warehouse deleted", nil)
}

func firstOf(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
