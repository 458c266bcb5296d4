package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DDBClient is the interface for DynamoDB operations.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoDBStore implements Store backed by a DynamoDB table.
//
// Table schema:
//   - Partition key: id (string) - the artifact ID
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name evictgo-artifacts \
//	  --attribute-definitions AttributeName=id,AttributeType=S \
//	  --key-schema AttributeName=id,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
//
// List performs a full table scan; the eviction coordinator needs every
// record to order by creation time, so a scan is the honest cost here.
type DynamoDBStore struct {
	client    DDBClient
	tableName string
}

// NewDynamoDBStore creates a new DynamoDB-backed catalog store.
func NewDynamoDBStore(client DDBClient, tableName string) *DynamoDBStore {
	return &DynamoDBStore{
		client:    client,
		tableName: tableName,
	}
}

// Put inserts or replaces a record.
func (s *DynamoDBStore) Put(ctx context.Context, rec ArtifactRecord) error {
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      marshalRecord(rec),
	})
	if err != nil {
		return fmt.Errorf("catalog: put %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns the record with the given ID.
func (s *DynamoDBStore) Get(ctx context.Context, id string) (ArtifactRecord, error) {
	resp, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return ArtifactRecord{}, fmt.Errorf("catalog: get %s: %w", id, err)
	}
	if len(resp.Item) == 0 {
		return ArtifactRecord{}, ErrNotFound
	}
	return unmarshalRecord(resp.Item)
}

// List returns all records via a paginated scan.
func (s *DynamoDBStore) List(ctx context.Context) ([]ArtifactRecord, error) {
	var (
		records []ArtifactRecord
		lastKey map[string]types.AttributeValue
	)

	for {
		resp, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.tableName),
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return nil, fmt.Errorf("catalog: scan: %w", err)
		}

		for _, item := range resp.Items {
			rec, err := unmarshalRecord(item)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}

		if len(resp.LastEvaluatedKey) == 0 {
			break
		}
		lastKey = resp.LastEvaluatedKey
	}

	return records, nil
}

// Delete removes a record. Deleting a missing record is a no-op
// (DynamoDB DeleteItem on a missing key succeeds).
func (s *DynamoDBStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return fmt.Errorf("catalog: delete %s: %w", id, err)
	}
	return nil
}

func marshalRecord(rec ArtifactRecord) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id":               &types.AttributeValueMemberS{Value: rec.ID},
		"display_name":     &types.AttributeValueMemberS{Value: rec.DisplayName},
		"created_at":       &types.AttributeValueMemberN{Value: strconv.FormatInt(rec.CreatedAt.UnixNano(), 10)},
		"storage_location": &types.AttributeValueMemberS{Value: rec.StorageLocation},
		"index_collection": &types.AttributeValueMemberS{Value: rec.IndexCollection},
	}
}

func unmarshalRecord(item map[string]types.AttributeValue) (ArtifactRecord, error) {
	var rec ArtifactRecord

	idAttr, ok := item["id"].(*types.AttributeValueMemberS)
	if !ok {
		return ArtifactRecord{}, errors.New("catalog: invalid id attribute")
	}
	rec.ID = idAttr.Value

	if v, ok := item["display_name"].(*types.AttributeValueMemberS); ok {
		rec.DisplayName = v.Value
	}
	if v, ok := item["storage_location"].(*types.AttributeValueMemberS); ok {
		rec.StorageLocation = v.Value
	}
	if v, ok := item["index_collection"].(*types.AttributeValueMemberS); ok {
		rec.IndexCollection = v.Value
	}

	createdAttr, ok := item["created_at"].(*types.AttributeValueMemberN)
	if !ok {
		return ArtifactRecord{}, fmt.Errorf("catalog: invalid created_at attribute for %s", rec.ID)
	}
	nanos, err := strconv.ParseInt(createdAttr.Value, 10, 64)
	if err != nil {
		return ArtifactRecord{}, fmt.Errorf("catalog: parse created_at for %s: %w", rec.ID, err)
	}
	rec.CreatedAt = time.Unix(0, nanos)

	return rec, nil
}
