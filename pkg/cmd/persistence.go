package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/storyflow/pkg/persistence"
	"github.com/dukex/storyflow/pkg/persistence/file"
	"github.com/dukex/storyflow/pkg/persistence/postgresql"
	"github.com/dukex/storyflow/pkg/persistence/redis"
)

var supportedPersistenceProviders = []string{"file", "postgres", "postgresql", "redis", "rediss"}

// NewPersistence opens the save store named by storeURL. The scheme picks
// the provider; a bare path is a file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, storeURL string) (persistence.Persistence, error) {
	provider := parsePersistenceProvider(storeURL)

	switch provider {
	case "postgres", "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger, storeURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres save store: %w", err)
		}

		return store, nil
	case "redis", "rediss":
		store, err := redis.NewPersistence(ctx, logger, storeURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis save store: %w", err)
		}

		return store, nil
	default:
		return file.NewPersistence(strings.TrimPrefix(storeURL, "file://")), nil
	}
}

func parsePersistenceProvider(storeURL string) string {
	parts := strings.Split(storeURL, "://")

	provider := parts[0]
	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}
