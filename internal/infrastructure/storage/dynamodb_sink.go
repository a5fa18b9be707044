package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"

	"PaperIngest/internal/config"
	"PaperIngest/internal/domain"
	"PaperIngest/internal/ports"
)

// DynamoDBSink upserts records into a table whose hash key is paper_id.
type DynamoDBSink struct {
	client dynamodbiface.DynamoDBAPI
	table  string
}

var _ ports.Sink = (*DynamoDBSink)(nil)

// NewDynamoDBSink wraps an existing client (a fake in tests).
func NewDynamoDBSink(client dynamodbiface.DynamoDBAPI, table string) *DynamoDBSink {
	return &DynamoDBSink{client: client, table: table}
}

// OpenDynamoDB creates a session from the default credential chain.
func OpenDynamoDB(cfg config.DynamoDBConfig) (*DynamoDBSink, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(cfg.Region)})
	if err != nil {
		return nil, fmt.Errorf("create AWS session: %w", err)
	}
	return NewDynamoDBSink(dynamodb.New(sess), cfg.Table), nil
}

// Exists fetches only the key attribute.
func (s *DynamoDBSink) Exists(ctx context.Context, key string) (bool, error) {
	out, err := s.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(s.table),
		Key:                  itemKey(key),
		ProjectionExpression: aws.String("paper_id"),
	})
	if err != nil {
		return false, fmt.Errorf("get item: %w", err)
	}
	return len(out.Item) > 0, nil
}

// Write replaces the whole item, which makes it an upsert.
func (s *DynamoDBSink) Write(ctx context.Context, key string, record domain.Record) error {
	record.PaperID = key
	record.Summary = domain.Truncate(record.Summary, domain.SummaryLimit)
	item, err := dynamodbattribute.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	item["processed_at"] = &dynamodb.AttributeValue{S: aws.String(record.ProcessedAtISO())}

	_, err = s.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

func itemKey(key string) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{
		"paper_id": {S: aws.String(key)},
	}
}
