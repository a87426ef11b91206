package adapter

import (
	"context"
	"time"
)

// Locker is a short-lived distributed mutex. TryLock returns domain.ErrLocked when
// someone else holds key.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
