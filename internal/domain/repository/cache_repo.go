package repository

import (
	"context"
	"time"
)

// CacheRepository is a key/value cache with expiry.
type CacheRepository interface {
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	// GetJSON returns apperrors.ErrNotFound on a cache miss.
	GetJSON(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
}
