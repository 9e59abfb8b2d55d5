package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/buildstream-notify/internal/domain"
)

// LookupRepo resolves display names for entities referenced by events.
// Each name resolves through its own table and key — there is no joined
// query anywhere, so a label can never come from an ambiguous column.
// All lookups are best-effort: the normalizer substitutes fixed fallback
// labels on any failure.
type LookupRepo struct {
	client             *dynamodb.Client
	usersTable         string
	projectsTable      string
	conversationsTable string
}

func NewLookupRepo(client *dynamodb.Client, usersTable, projectsTable, conversationsTable string) *LookupRepo {
	return &LookupRepo{
		client:             client,
		usersTable:         usersTable,
		projectsTable:      projectsTable,
		conversationsTable: conversationsTable,
	}
}

// namedRow is the minimal projection shared by projects and conversations.
type namedRow struct {
	Name string `dynamodbav:"name"`
}

// UserName resolves a sender's display name from the users table.
func (r *LookupRepo) UserName(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user_id empty: %w", domain.ErrNotFound)
	}
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.usersTable),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return "", err
	}
	if out.Item == nil {
		return "", fmt.Errorf("user_id %s: %w", userID, domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return "", err
	}
	if name := u.DisplayName(); name != "" {
		return name, nil
	}
	return "", fmt.Errorf("user_id %s has no name: %w", userID, domain.ErrNotFound)
}

func (r *LookupRepo) ProjectName(ctx context.Context, projectID string) (string, error) {
	return r.name(ctx, r.projectsTable, "project_id", projectID)
}

func (r *LookupRepo) ConversationName(ctx context.Context, conversationID string) (string, error) {
	return r.name(ctx, r.conversationsTable, "conversation_id", conversationID)
}

func (r *LookupRepo) name(ctx context.Context, table, keyAttr, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%s empty: %w", keyAttr, domain.ErrNotFound)
	}
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key:       strKey(keyAttr, key),
	})
	if err != nil {
		return "", err
	}
	if out.Item == nil {
		return "", fmt.Errorf("%s %s: %w", keyAttr, key, domain.ErrNotFound)
	}
	var row namedRow
	if err := attributevalue.UnmarshalMap(out.Item, &row); err != nil {
		return "", err
	}
	if row.Name == "" {
		return "", fmt.Errorf("%s %s has no name: %w", keyAttr, key, domain.ErrNotFound)
	}
	return row.Name, nil
}
