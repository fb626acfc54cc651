package dynamodb

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/coursepilot/coursepilot/pkg/types"
)

// PutSyncMetadata upserts the sync item for a tuple.
func (s *Store) PutSyncMetadata(ctx context.Context, meta types.SyncMetadata) error {
	pk := syncPK(meta.Institution)
	sk := syncSK(string(meta.EntityType), meta.Term)
	if err := s.putJSON(ctx, pk, sk, meta); err != nil {
		return fmt.Errorf("dynamodb put sync metadata %s: %w",
			types.SyncTuple(meta.EntityType, meta.Term, meta.Institution), err)
	}
	return nil
}

// GetSyncMetadata returns the sync item for a tuple, or nil if never synced.
func (s *Store) GetSyncMetadata(ctx context.Context, et types.EntityType, term, institution string) (*types.SyncMetadata, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]ddbtypes.AttributeValue{
			"PK": &ddbtypes.AttributeValueMemberS{Value: syncPK(institution)},
			"SK": &ddbtypes.AttributeValueMemberS{Value: syncSK(string(et), term)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb get sync metadata: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	var meta types.SyncMetadata
	if err := decodeData(out.Item, &meta); err != nil {
		return nil, fmt.Errorf("dynamodb decode sync metadata: %w", err)
	}
	return &meta, nil
}

// ListSyncMetadata returns sync items for an institution, or all sync items
// when institution is empty. The all-institutions case scans on the PK prefix.
func (s *Store) ListSyncMetadata(ctx context.Context, institution string) ([]types.SyncMetadata, error) {
	var items []map[string]ddbtypes.AttributeValue
	var err error
	if institution != "" {
		items, err = s.queryPartition(ctx, syncPK(institution))
	} else {
		items, err = s.scanPrefix(ctx, pkSyncPrefix)
	}
	if err != nil {
		return nil, fmt.Errorf("dynamodb list sync metadata: %w", err)
	}

	var result []types.SyncMetadata
	for _, item := range items {
		var meta types.SyncMetadata
		if err := decodeData(item, &meta); err != nil {
			return nil, fmt.Errorf("dynamodb decode sync metadata: %w", err)
		}
		result = append(result, meta)
	}
	sort.Slice(result, func(i, j int) bool {
		a := types.SyncTuple(result[i].EntityType, result[i].Term, result[i].Institution)
		b := types.SyncTuple(result[j].EntityType, result[j].Term, result[j].Institution)
		return a < b
	})
	return result, nil
}

// scanPrefix pages through every item whose partition key starts with prefix.
func (s *Store) scanPrefix(ctx context.Context, prefix string) ([]map[string]ddbtypes.AttributeValue, error) {
	var items []map[string]ddbtypes.AttributeValue
	var startKey map[string]ddbtypes.AttributeValue
	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:        &s.tableName,
			FilterExpression: aws.String("begins_with(PK, :prefix)"),
			ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
				":prefix": &ddbtypes.AttributeValueMemberS{Value: prefix},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		items = append(items, out.Items...)
		if out.LastEvaluatedKey == nil {
			return items, nil
		}
		startKey = out.LastEvaluatedKey
	}
}
