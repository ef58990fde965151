package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-warehouse-orders/internal/catalog"
	"github.com/ariefcatur/go-warehouse-orders/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	Catalog *catalog.Service
	Redis   *redis.Client
	Log     *zap.Logger
}

func (h *DashboardHandler) Register(r chi.Router) {
	r.Get("/dashboard/stats", h.stats)
}

func (h *DashboardHandler) stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var cached catalog.Stats
	hit, err := redisx.GetJSON(ctx, h.Redis, redisx.KeyDashboardStats, &cached)
	if err != nil {
		h.Log.Warn("dashboard cache read failed", zap.Error(err))
	}
	if hit {
		ok(w, http.StatusOK, "dashboard stats", cached)
		return
	}

	st, err := h.Catalog.Stats(ctx)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if err := redisx.SetJSON(ctx, h.Redis, redisx.KeyDashboardStats, st, redisx.TTLDashboardCache); err != nil {
		h.Log.Warn("dashboard cache write failed", zap.Error(err))
	}
	ok(w, http.StatusOK, "dashboard stats", st)
}
