package settings

import (
	"context"
	"strings"
)

// NewStore creates a postgres-backed store when configured, otherwise file-backed.
func NewStore(ctx context.Context, databaseURL, path string) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewFileStore(path)
	}
	return NewPostgresStore(ctx, databaseURL)
}
