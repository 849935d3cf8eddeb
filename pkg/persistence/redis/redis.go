// Package redis provides Redis persistence for save slots.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/persistence"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "storyflow:"

// Persistence keeps every snapshot as a JSON string under
// storyflow:save:<graph_id>:<slot>, with a set of slots per graph and a set
// of graphs for listing.
type Persistence struct {
	client redis.UniversalClient
	logger *slog.Logger
}

// NewPersistence connects to the Redis server described by redisURL.
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	_, err = client.Ping(ctx).Result()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewPersistenceWithClient(logger, client), nil
}

// NewPersistenceWithClient wraps an existing client.
func NewPersistenceWithClient(logger *slog.Logger, client redis.UniversalClient) *Persistence {
	return &Persistence{
		client: client,
		logger: logger.With("module", "redis_persistence"),
	}
}

// Close closes the client.
func (p *Persistence) Close(_ context.Context) error {
	err := p.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}

// HealthCheck pings the server.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

// Save stores the snapshot and indexes its slot.
func (p *Persistence) Save(ctx context.Context, snapshot *models.Snapshot) error {
	err := persistence.ValidateSnapshot(snapshot)
	if err != nil {
		return err
	}

	persistence.Stamp(snapshot)

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot %s: %w", snapshot.Slot, err)
	}

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, saveKey(snapshot.GraphID, snapshot.Slot), data, 0)
		pipe.SAdd(ctx, slotsKey(snapshot.GraphID), snapshot.Slot)
		pipe.SAdd(ctx, graphsKey(), snapshot.GraphID)

		return nil
	})
	if err != nil {
		return persistence.NewSaveError("Save", snapshot.GraphID, snapshot.Slot, err)
	}

	return nil
}

// Load returns the snapshot in slot.
func (p *Persistence) Load(ctx context.Context, graphID, slot string) (*models.Snapshot, error) {
	data, err := p.client.Get(ctx, saveKey(graphID, slot)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.NewSaveError("Load", graphID, slot, persistence.ErrSaveNotFound)
		}

		return nil, persistence.NewSaveError("Load", graphID, slot, err)
	}

	var snapshot models.Snapshot

	err = json.Unmarshal(data, &snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", slot, err)
	}

	return &snapshot, nil
}

// List returns the snapshots of graphID, every graph when empty, newest first.
func (p *Persistence) List(ctx context.Context, graphID string) ([]*models.Snapshot, error) {
	graphs := []string{graphID}

	if graphID == "" {
		var err error

		graphs, err = p.client.SMembers(ctx, graphsKey()).Result()
		if err != nil {
			return nil, persistence.NewSaveError("List", graphID, "", err)
		}
	}

	snapshots := make([]*models.Snapshot, 0)

	for _, graph := range graphs {
		slots, err := p.client.SMembers(ctx, slotsKey(graph)).Result()
		if err != nil {
			return nil, persistence.NewSaveError("List", graph, "", err)
		}

		for _, slot := range slots {
			snapshot, err := p.Load(ctx, graph, slot)
			if persistence.IsSaveNotFound(err) {
				p.logger.WarnContext(ctx, "Dropping stale slot index entry", "graph_id", graph, "slot", slot)
				p.client.SRem(ctx, slotsKey(graph), slot)

				continue
			}

			if err != nil {
				return nil, err
			}

			snapshots = append(snapshots, snapshot)
		}
	}

	persistence.SortNewestFirst(snapshots)

	return snapshots, nil
}

// Delete removes a slot and its index entry.
func (p *Persistence) Delete(ctx context.Context, graphID, slot string) error {
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, saveKey(graphID, slot))
		pipe.SRem(ctx, slotsKey(graphID), slot)

		return nil
	})
	if err != nil {
		return persistence.NewSaveError("Delete", graphID, slot, err)
	}

	return nil
}

func saveKey(graphID, slot string) string {
	return keyPrefix + "save:" + graphID + ":" + slot
}

func slotsKey(graphID string) string {
	return keyPrefix + "slots:" + graphID
}

func graphsKey() string {
	return keyPrefix + "graphs"
}
