package store

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/meridianquant/docvault/marketdata"
)

// DynamoAPI is the slice of the DynamoDB client used by the Store.
// *dynamodb.Client satisfies it; tests substitute an in-memory fake.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

var _ DynamoAPI = (*dynamodb.Client)(nil)

// Publisher receives change notifications after successful writes. The
// operation is one of "created", "updated", "deleted". notify.Notifier
// implements it.
type Publisher interface {
	Publish(ctx context.Context, operation string, doc marketdata.Document) error
	PublishBatch(ctx context.Context, operation string, docs []marketdata.Document) error
}

// Change operations passed to the Publisher.
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)
