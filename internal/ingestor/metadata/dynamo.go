package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/models"
	"github.com/dmitrijs2005/ingestpipe/internal/logging"
)

// insertCondition makes the put conditional on the composite key being
// absent, which is what turns a duplicate into a no-op.
const insertCondition = "attribute_not_exists(Filename) AND attribute_not_exists(UploadTimestamp)"

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoStore persists metadata records into a DynamoDB table keyed by
// (Filename, UploadTimestamp).
type DynamoStore struct {
	client DynamoAPI
	table  string
	logger logging.Logger
}

func NewDynamoStore(client DynamoAPI, table string, logger logging.Logger) *DynamoStore {
	return &DynamoStore{client: client, table: table, logger: logger}
}

func (s *DynamoStore) Insert(ctx context.Context, record *models.MetadataRecord) (WriteResult, error) {

	item := map[string]types.AttributeValue{
		"Filename":        &types.AttributeValueMemberS{Value: record.Filename},
		"UploadTimestamp": &types.AttributeValueMemberS{Value: record.UploadTimestamp},
		"Bucket":          &types.AttributeValueMemberS{Value: record.Bucket},
		"EventTime":       &types.AttributeValueMemberS{Value: record.EventTime},
	}

	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String(insertCondition),
	})

	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			s.logger.Warn(ctx, "duplicate metadata record suppressed",
				"filename", record.Filename, "upload_timestamp", record.UploadTimestamp)
			return WriteDuplicate, nil
		}
		return WriteFailed, fmt.Errorf("dynamodb put: %w", err)
	}

	s.logger.Info(ctx, "metadata record written",
		"filename", record.Filename, "upload_timestamp", record.UploadTimestamp)

	return WriteCreated, nil
}
