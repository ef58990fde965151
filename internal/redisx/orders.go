package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type StatusEntry struct {
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func CacheOrderStatus(ctx context.Context, rdb *redis.Client, orderID string, e StatusEntry) error {
	return SetJSON(ctx, rdb, fmt.Sprintf(KeyOrderStatus, orderID), e, TTLStatusCache)
}

func CachedOrderStatus(ctx context.Context, rdb *redis.Client, orderID string) (StatusEntry, bool, error) {
	var e StatusEntry
	ok, err := GetJSON(ctx, rdb, fmt.Sprintf(KeyOrderStatus, orderID), &e)
	return e, ok, err
}

func RememberOrderNumber(ctx context.Context, rdb *redis.Client, number, orderID string) error {
	if rdb == nil {
		return nil
	}
	return rdb.Set(ctx, fmt.Sprintf(KeyIdemOrderCreate, number), orderID, TTLIdempotency).Err()
}

// LookupOrderNumber returns the order id remembered for number, if any.
func LookupOrderNumber(ctx context.Context, rdb *redis.Client, number string) (string, bool, error) {
	if rdb == nil {
		return "", false, nil
	}
	id, err := rdb.Get(ctx, fmt.Sprintf(KeyIdemOrderCreate, number)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// RevocationList stores revoked refresh-token ids until they would have
// expired anyway.
type RevocationList struct{ RDB *redis.Client }

// Revoke records jti with SETNX and reports whether this call was the one
// that revoked it.
func (l *RevocationList) Revoke(ctx context.Context, jti string, until time.Time) (bool, error) {
	ttl := max(time.Until(until), time.Second)
	return l.RDB.SetNX(ctx, fmt.Sprintf(KeyRevokedToken, jti), "1", ttl).Result()
}

func (l *RevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return Exists(ctx, l.RDB, fmt.Sprintf(KeyRevokedToken, jti))
}
