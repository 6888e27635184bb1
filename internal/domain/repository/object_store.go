package repository

import "context"

// ObjectStore keeps binary files addressed by key.
type ObjectStore interface {
	// Upload stores body under key and returns the public URL of the object.
	Upload(ctx context.Context, key, contentType string, body []byte) (string, error)
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// KeyFromURL maps a URL returned by Upload back to its key; ok is false for foreign URLs.
	KeyFromURL(url string) (key string, ok bool)
}
