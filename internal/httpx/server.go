package httpx

import (
	"net/http"
	"time"

	"github.com/ariefcatur/go-warehouse-orders/internal/auth"
	"github.com/ariefcatur/go-warehouse-orders/internal/catalog"
	"github.com/ariefcatur/go-warehouse-orders/internal/inventory"
	"github.com/ariefcatur/go-warehouse-orders/internal/logging"
	"github.com/ariefcatur/go-warehouse-orders/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func NewRouter(log *zap.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, AccessLog(logging.OrNop(log)), middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Deps are the collaborators of the HTTP API. Redis may be nil.
type Deps struct {
	Auth    *auth.Service
	Catalog *catalog.Service
	Engine  *inventory.Service
	Store   orders.Reader
	Redis   *redis.Client
	Log     *zap.Logger
}

// NewServer builds the full API router.
func NewServer(d Deps) *chi.Mux {
	log := logging.OrNop(d.Log)
	r := NewRouter(log)

	ah := &AuthHandler{Auth: d.Auth, Log: log}
	ph := &ProductsHandler{Catalog: d.Catalog, Redis: d.Redis, Log: log}
	wh := &WarehousesHandler{Catalog: d.Catalog, Redis: d.Redis, Log: log}
	oh := &OrdersHandler{Engine: d.Engine, Redis: d.Redis, Log: log}
	th := &TransactionsHandler{Engine: d.Engine, Store: d.Store, Redis: d.Redis, Log: log}
	dh := &DashboardHandler{Catalog: d.Catalog, Redis: d.Redis, Log: log}

	ah.Register(r)
	r.Group(func(pr chi.Router) {
		pr.Use(RequireAuth(d.Auth))
		ah.RegisterProtected(pr)
		ph.Register(pr)
		wh.Register(pr)
		oh.Register(pr)
		th.Register(pr)
		dh.Register(pr)
	})
	return r
}
