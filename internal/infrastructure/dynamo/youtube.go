package dynamo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/creator-studio/internal/domain"
)

// IntegrationRepo stores linked YouTube channels. PK: integration_id, GSI user_id-index.
type IntegrationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewIntegrationRepo(client *dynamodb.Client, tableName string) *IntegrationRepo {
	return &IntegrationRepo{client: client, tableName: tableName}
}

func (r *IntegrationRepo) Put(ctx context.Context, i *domain.YouTubeIntegration) error {
	item, err := attributevalue.MarshalMap(i)
	if err != nil {
		return fmt.Errorf("marshal integration: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *IntegrationRepo) listByUser(ctx context.Context, userID string) ([]domain.YouTubeIntegration, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-index"),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, err
	}
	var rows []domain.YouTubeIntegration
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Active returns the user's active integration, newest first if several slipped through.
func (r *IntegrationRepo) Active(ctx context.Context, userID string) (*domain.YouTubeIntegration, error) {
	rows, err := r.listByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var best *domain.YouTubeIntegration
	for i := range rows {
		if !rows[i].IsActive {
			continue
		}
		if best == nil || rows[i].CreatedAt.After(best.CreatedAt) {
			best = &rows[i]
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no active youtube integration: %w", domain.ErrNotFound)
	}
	return best, nil
}

// DeactivateAll clears is_active on every active integration of the user.
func (r *IntegrationRepo) DeactivateAll(ctx context.Context, userID string) error {
	rows, err := r.listByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if !row.IsActive {
			continue
		}
		ue, err := buildUpdateExpr(map[string]interface{}{
			fieldIsActive:  false,
			fieldUpdatedAt: time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
		if _, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                 aws.String(r.tableName),
			Key:                       strKey("integration_id", row.IntegrationID),
			UpdateExpression:          aws.String(ue.Expr),
			ExpressionAttributeNames:  ue.Names,
			ExpressionAttributeValues: ue.Values,
		}); err != nil {
			slog.Warn("failed to deactivate youtube integration", "integration_id", row.IntegrationID, "err", err)
			return err
		}
	}
	return nil
}

// UpdateTokens stores a refreshed access token and its expiry.
func (r *IntegrationRepo) UpdateTokens(ctx context.Context, integrationID, accessToken string, expiresAt time.Time) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		"access_token": accessToken,
		"expires_at":   expiresAt,
		fieldUpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("integration_id", integrationID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// PublishRepo stores publish attempts. PK: upload_id, GSIs user_id-created_at-index and video_id-index.
type PublishRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewPublishRepo(client *dynamodb.Client, tableName string) *PublishRepo {
	return &PublishRepo{client: client, tableName: tableName}
}

func (r *PublishRepo) Put(ctx context.Context, u *domain.YouTubeUpload) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal youtube upload: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// FindByVideoAndIntegration returns the published upload of videoID through
// integrationID, if any. FAILED attempts are ignored so they can be retried.
func (r *PublishRepo) FindByVideoAndIntegration(ctx context.Context, videoID, integrationID string) (*domain.YouTubeUpload, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("video_id-index"),
		KeyConditionExpression: aws.String("video_id = :vid"),
		FilterExpression:       aws.String("integration_id = :iid AND #st = :published"),
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":vid":       &types.AttributeValueMemberS{Value: videoID},
			":iid":       &types.AttributeValueMemberS{Value: integrationID},
			":published": &types.AttributeValueMemberS{Value: domain.UploadPublished},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("youtube upload not found: %w", domain.ErrNotFound)
	}
	var u domain.YouTubeUpload
	if err := attributevalue.UnmarshalMap(out.Items[0], &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListByUser returns the user's publish history, newest first.
func (r *PublishRepo) ListByUser(ctx context.Context, userID string) ([]domain.YouTubeUpload, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-created_at-index"),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	uploads := []domain.YouTubeUpload{}
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &uploads); err != nil {
		return nil, err
	}
	return uploads, nil
}
