package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/buildstream-notify/internal/domain"
)

// DeadLetterRepo stores records for events that could not be written even
// after the sanitized retry. The raw payload lives in S3; only the pointer
// is kept here.
type DeadLetterRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewDeadLetterRepo(client *dynamodb.Client, tableName string) *DeadLetterRepo {
	return &DeadLetterRepo{client: client, tableName: tableName}
}

func (r *DeadLetterRepo) Put(ctx context.Context, dl *domain.DeadLetter) error {
	item, err := attributevalue.MarshalMap(dl)
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *DeadLetterRepo) Get(ctx context.Context, deadLetterID string) (*domain.DeadLetter, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("dead_letter_id", deadLetterID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("dead letter %s: %w", deadLetterID, domain.ErrNotFound)
	}
	var dl domain.DeadLetter
	if err := attributevalue.UnmarshalMap(out.Item, &dl); err != nil {
		return nil, err
	}
	return &dl, nil
}

// Scan lists all dead letters. The table stays small; dead letters are
// defects to fix in the normalizer, not a queue.
func (r *DeadLetterRepo) Scan(ctx context.Context) ([]domain.DeadLetter, error) {
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
	})
	if err != nil {
		return nil, err
	}
	var letters []domain.DeadLetter
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &letters); err != nil {
		return nil, err
	}
	return letters, nil
}
