package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/buildstream-notify/internal/domain"
)

// NotificationRepo provides typed DynamoDB operations for the notifications
// table. The table is keyed by dedup_key (entity_type#entity_id#recipient_id)
// so the natural-key uniqueness invariant is enforced by the store itself via
// conditional writes — concurrent redelivery of the same event cannot create
// a second row.
type NotificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewNotificationRepo(client *dynamodb.Client, tableName string) *NotificationRepo {
	return &NotificationRepo{client: client, tableName: tableName}
}

// Insert writes one notification, failing with domain.ErrDuplicate when a row
// with the same dedup key already exists.
func (r *NotificationRepo) Insert(ctx context.Context, n *domain.Notification) error {
	item, err := attributevalue.MarshalMap(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(dedup_key)"),
	})
	return mapWriteError(err)
}

// InsertBatch writes all rows for one event atomically. Either every row
// lands or none does; a client observing any row of the batch may assume the
// batch is complete. When the transaction is cancelled because some dedup key
// already exists, domain.ErrDuplicate is returned; when an item fails the
// table's validation, domain.ErrSchemaViolation. Either way the caller falls
// back to per-row Insert so one bad or replayed row never blocks the rest.
func (r *NotificationRepo) InsertBatch(ctx context.Context, batch []domain.Notification) error {
	if len(batch) == 0 {
		return nil
	}
	items := make([]types.TransactWriteItem, 0, len(batch))
	for i := range batch {
		item, err := attributevalue.MarshalMap(&batch[i])
		if err != nil {
			return fmt.Errorf("marshal notification: %w", err)
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(dedup_key)"),
			},
		})
	}
	_, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	return mapTransactError(err)
}

// Get resolves a notification by its public id via the notification_id GSI.
func (r *NotificationRepo) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("notification_id-index"),
		KeyConditionExpression: aws.String("notification_id = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: notificationID},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("notification %s: %w", notificationID, domain.ErrNotFound)
	}
	var n domain.Notification
	if err := attributevalue.UnmarshalMap(out.Items[0], &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// ListRecent returns up to limit notifications for a recipient, newest first,
// via the recipient_id-created_at GSI.
func (r *NotificationRepo) ListRecent(ctx context.Context, recipientID string, limit int32) ([]domain.Notification, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("recipient_id-created_at-index"),
		KeyConditionExpression: aws.String("recipient_id = :rid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rid": &types.AttributeValueMemberS{Value: recipientID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(limit),
	})
	if err != nil {
		return nil, err
	}
	var notifications []domain.Notification
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// ListUnread queries the recipient GSI and filters for is_read=false.
func (r *NotificationRepo) ListUnread(ctx context.Context, recipientID string) ([]domain.Notification, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("recipient_id-created_at-index"),
		KeyConditionExpression: aws.String("recipient_id = :rid"),
		FilterExpression:       aws.String("is_read = :f"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rid": &types.AttributeValueMemberS{Value: recipientID},
			":f":   &types.AttributeValueMemberBOOL{Value: false},
		},
	})
	if err != nil {
		return nil, err
	}
	var notifications []domain.Notification
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// ListAll pages through every notification a recipient has. Used by the
// clear-all operation, so result size is bounded by how long the user let
// their feed grow.
func (r *NotificationRepo) ListAll(ctx context.Context, recipientID string) ([]domain.Notification, error) {
	var notifications []domain.Notification
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String("recipient_id-created_at-index"),
			KeyConditionExpression: aws.String("recipient_id = :rid"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":rid": &types.AttributeValueMemberS{Value: recipientID},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		var page []domain.Notification
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		notifications = append(notifications, page...)
		if out.LastEvaluatedKey == nil {
			return notifications, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// MarkAsRead flips is_read on an unread row. The unread→read transition is
// guarded by a condition expression, so marking an already-read notification
// is a no-op rather than an error. Returns true when the row transitioned.
func (r *NotificationRepo) MarkAsRead(ctx context.Context, dedupKey string, readAt time.Time) (bool, error) {
	ue, err := buildUpdateExpr(map[string]interface{}{
		"is_read": true,
		"read_at": readAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return false, err
	}
	ue.Values[":unread"] = &types.AttributeValueMemberBOOL{Value: false}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("dedup_key", dedupKey),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("is_read = :unread"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes a row by its dedup key.
func (r *NotificationRepo) Delete(ctx context.Context, dedupKey string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("dedup_key", dedupKey),
	})
	return err
}
