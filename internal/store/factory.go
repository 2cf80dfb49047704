package store

import (
	"context"
	"strings"
)

// NewStore creates a postgres-backed store when a database URL is
// configured, otherwise a file-backed store, otherwise in-memory.
func NewStore(ctx context.Context, databaseURL, filePath string) (Store, error) {
	if strings.TrimSpace(databaseURL) != "" {
		return NewPostgresStore(ctx, databaseURL)
	}
	if strings.TrimSpace(filePath) != "" {
		return NewFileStore(filePath), nil
	}
	return NewInMemoryStore(), nil
}
