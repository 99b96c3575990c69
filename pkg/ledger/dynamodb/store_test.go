package dynamodb

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/skyvale/cloudpoints/pkg/ledger/dynamodb/mocks"
	"github.com/skyvale/cloudpoints/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestReadSnapshot(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		entry, err := attributevalue.MarshalMap(models.BalanceEntry{AccountID: "111", Points: 250})
		require.NoError(t, err)

		mockClient := new(mocks.DynamoDBAPI)
		mockClient.On("Scan", mock.Anything, mock.Anything).Return(&dynamodb.ScanOutput{
			Items: []map[string]types.AttributeValue{entry},
		}, nil).Once()

		store := New(mockClient, "ledger")
		balances, err := store.ReadSnapshot(context.Background())

		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"111": 250}, balances)
		mockClient.AssertExpectations(t)
	})

	t.Run("Scan Error", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		mockClient.On("Scan", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

		store := New(mockClient, "ledger")
		_, err := store.ReadSnapshot(context.Background())

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to scan ledger table")
	})
}

func TestWriteSnapshot(t *testing.T) {
	t.Run("Batches Of 25", func(t *testing.T) {
		balances := make(map[string]int64)
		for i := 0; i < 30; i++ {
			balances[string(rune('a'+i))] = int64(i)
		}

		mockClient := new(mocks.DynamoDBAPI)
		mockClient.On("BatchWriteItem", mock.Anything, mock.Anything).Return(&dynamodb.BatchWriteItemOutput{}, nil).Twice()

		store := New(mockClient, "ledger")
		require.NoError(t, store.WriteSnapshot(context.Background(), balances))
		mockClient.AssertExpectations(t)
	})

	t.Run("Write Error", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		mockClient.On("BatchWriteItem", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

		store := New(mockClient, "ledger")
		err := store.WriteSnapshot(context.Background(), map[string]int64{"111": 1})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to write balance batch")
	})
}
