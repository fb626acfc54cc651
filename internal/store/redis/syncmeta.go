package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	"github.com/coursepilot/coursepilot/pkg/types"
)

func (s *Store) syncMetaKey(institution string) string {
	return s.prefix + "syncmeta:" + institution
}

func (s *Store) institutionsKey() string {
	return s.prefix + "institutions"
}

func syncField(et types.EntityType, term string) string {
	return string(et) + ":" + term
}

// PutSyncMetadata upserts the sync row for a tuple. The institution is also
// recorded in an index set so listings never need a keyspace scan.
func (s *Store) PutSyncMetadata(ctx context.Context, meta types.SyncMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("redis encode sync metadata: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.syncMetaKey(meta.Institution), syncField(meta.EntityType, meta.Term), data)
	pipe.SAdd(ctx, s.institutionsKey(), meta.Institution)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis put sync metadata: %w", err)
	}
	return nil
}

// GetSyncMetadata returns the sync row for a tuple, or nil if never synced.
func (s *Store) GetSyncMetadata(ctx context.Context, et types.EntityType, term, institution string) (*types.SyncMetadata, error) {
	data, err := s.client.HGet(ctx, s.syncMetaKey(institution), syncField(et, term)).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get sync metadata: %w", err)
	}

	var meta types.SyncMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("redis decode sync metadata: %w", err)
	}
	return &meta, nil
}

// ListSyncMetadata returns sync rows for an institution, or for all known
// institutions when institution is empty.
func (s *Store) ListSyncMetadata(ctx context.Context, institution string) ([]types.SyncMetadata, error) {
	institutions := []string{institution}
	if institution == "" {
		all, err := s.client.SMembers(ctx, s.institutionsKey()).Result()
		if err != nil {
			return nil, fmt.Errorf("redis list institutions: %w", err)
		}
		institutions = all
	}

	var result []types.SyncMetadata
	for _, inst := range institutions {
		rows, err := s.client.HGetAll(ctx, s.syncMetaKey(inst)).Result()
		if err != nil {
			return nil, fmt.Errorf("redis list sync metadata: %w", err)
		}
		for _, raw := range rows {
			var meta types.SyncMetadata
			if err := json.Unmarshal([]byte(raw), &meta); err != nil {
				return nil, fmt.Errorf("redis decode sync metadata: %w", err)
			}
			result = append(result, meta)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return types.SyncTuple(result[i].EntityType, result[i].Term, result[i].Institution) <
			types.SyncTuple(result[j].EntityType, result[j].Term, result[j].Institution)
	})
	return result, nil
}
