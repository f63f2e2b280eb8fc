package storage

import "context"

// ObjectStore uploads processed output bytes and yields a retrieval URL.
// Implementations are assumed durable and immediately consistent: the
// returned URL is expected to serve the object as soon as Upload returns.
type ObjectStore interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)
}
