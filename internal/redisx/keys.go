package redisx

import "time"

const (
	// Idempotency create order: idem:order:create:{order_number} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s"

	// Cache status order: order_status:{order_id} -> {"status": "...", "updated_at": "..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Refresh token yang sudah dicabut: auth:revoked:{jti} -> "1"
	KeyRevokedToken = "auth:revoked:%s"

	// Snapshot dashboard stats
	KeyDashboardStats = "cache:dashboard:stats"
)

var (
	TTLIdempotency    = 24 * time.Hour
	TTLStatusCache    = 5 * time.Minute
	TTLDedup          = 48 * time.Hour
	TTLDashboardCache = 15 * time.Second
)
