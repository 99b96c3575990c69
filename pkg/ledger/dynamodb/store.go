// Package dynamodb provides a database-backed SnapshotStore for deployments
// that outgrow the channel-attachment ledger. One item per account; the
// snapshot read is a full table scan, which is fine at community-server scale.
package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/skyvale/cloudpoints/pkg/ledger"
	"github.com/skyvale/cloudpoints/pkg/models"
)

// batchWriteLimit is DynamoDB's maximum number of items per BatchWriteItem call.
const batchWriteLimit = 25

// DynamoDBAPI captures the subset of the DynamoDB client the store uses.
type DynamoDBAPI interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// SnapshotStore implements ledger.SnapshotStore on a DynamoDB table.
type SnapshotStore struct {
	Client    DynamoDBAPI
	TableName string
}

// New creates a SnapshotStore.
func New(client DynamoDBAPI, tableName string) *SnapshotStore {
	return &SnapshotStore{Client: client, TableName: tableName}
}

// Make sure we conform to the interface
var _ ledger.SnapshotStore = (*SnapshotStore)(nil)

// ReadSnapshot scans the full balance table.
func (s *SnapshotStore) ReadSnapshot(ctx context.Context) (map[string]int64, error) {
	balances := make(map[string]int64)

	input := &dynamodb.ScanInput{TableName: aws.String(s.TableName)}
	for {
		result, err := s.Client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger table: %w", err)
		}

		var entries []models.BalanceEntry
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &entries); err != nil {
			return nil, fmt.Errorf("failed to unmarshal balance entries: %w", err)
		}
		for _, entry := range entries {
			balances[entry.AccountID] = entry.Points
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return balances, nil
}

// WriteSnapshot upserts every balance entry in batches of 25.
func (s *SnapshotStore) WriteSnapshot(ctx context.Context, balances map[string]int64) error {
	requests := make([]types.WriteRequest, 0, len(balances))
	for accountID, points := range balances {
		item, err := attributevalue.MarshalMap(models.BalanceEntry{AccountID: accountID, Points: points})
		if err != nil {
			return fmt.Errorf("failed to marshal balance entry for %s: %w", accountID, err)
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}

	for start := 0; start < len(requests); start += batchWriteLimit {
		end := start + batchWriteLimit
		if end > len(requests) {
			end = len(requests)
		}

		input := &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{s.TableName: requests[start:end]},
		}
		if _, err := s.Client.BatchWriteItem(ctx, input); err != nil {
			return fmt.Errorf("failed to write balance batch: %w", err)
		}
	}

	return nil
}
