package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"libflow/models"
)

const snapshotKey = "libflow:seats:snapshot"

// SnapshotStore mirrors the latest display snapshot into a Redis hash so
// other processes can read it and a restarted server can serve it at once.
type SnapshotStore struct {
	Redis *redis.Client
	ttl   time.Duration
}

func NewSnapshotStore(redisClient *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{Redis: redisClient, ttl: ttl}
}

func (s *SnapshotStore) Save(ctx context.Context, snap models.Snapshot) error {
	stats, err := json.Marshal(snap.Stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	seats, err := json.Marshal(snap.Seats)
	if err != nil {
		return fmt.Errorf("marshal seats: %w", err)
	}

	_, err = s.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, snapshotKey,
			"version", strconv.FormatUint(snap.Version, 10),
			"updated_at", snap.UpdatedAt.UTC().Format(time.RFC3339Nano),
			"stats", string(stats),
			"seats", string(seats),
		)
		if s.ttl > 0 {
			pipe.Expire(ctx, snapshotKey, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load returns the mirrored snapshot; ok is false when none is stored.
func (s *SnapshotStore) Load(ctx context.Context) (snap models.Snapshot, ok bool, err error) {
	fields, err := s.Redis.HGetAll(ctx, snapshotKey).Result()
	if err != nil && err != redis.Nil {
		return models.Snapshot{}, false, err
	}
	if len(fields) == 0 {
		return models.Snapshot{}, false, nil
	}

	if snap.Version, err = strconv.ParseUint(fields["version"], 10, 64); err != nil {
		return models.Snapshot{}, false, fmt.Errorf("parse version: %w", err)
	}
	if snap.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields["updated_at"]); err != nil {
		return models.Snapshot{}, false, fmt.Errorf("parse updated_at: %w", err)
	}
	if err := json.Unmarshal([]byte(fields["stats"]), &snap.Stats); err != nil {
		return models.Snapshot{}, false, fmt.Errorf("decode stats: %w", err)
	}
	if err := json.Unmarshal([]byte(fields["seats"]), &snap.Seats); err != nil {
		return models.Snapshot{}, false, fmt.Errorf("decode seats: %w", err)
	}
	return snap, true, nil
}
