package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/creator-studio/internal/domain"
)

// VideoRepo provides typed DynamoDB operations for the videos table. Video
// creation also writes the initial VideoTask, so the repo knows both tables.
type VideoRepo struct {
	client    *dynamodb.Client
	tableName string
	taskTable string
}

func NewVideoRepo(client *dynamodb.Client, tableName, taskTable string) *VideoRepo {
	return &VideoRepo{client: client, tableName: tableName, taskTable: taskTable}
}

// CreateWithTask writes the video row and its NOT_STARTED task atomically.
func (r *VideoRepo) CreateWithTask(ctx context.Context, v *domain.Video, task *domain.VideoTask) error {
	videoItem, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal video: %w", err)
	}
	taskItem, err := attributevalue.MarshalMap(task)
	if err != nil {
		return fmt.Errorf("marshal video task: %w", err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                videoItem,
				ConditionExpression: aws.String("attribute_not_exists(video_id)"),
			}},
			{Put: &types.Put{
				TableName: aws.String(r.taskTable),
				Item:      taskItem,
			}},
		},
	})
	return err
}

func (r *VideoRepo) Get(ctx context.Context, videoID string) (*domain.Video, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("video_id", videoID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("video not found: %w", domain.ErrNotFound)
	}
	var v domain.Video
	if err := attributevalue.UnmarshalMap(out.Item, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetOwned returns the video only when userID owns it; a foreign video is
// reported as not found.
func (r *VideoRepo) GetOwned(ctx context.Context, videoID, userID string) (*domain.Video, error) {
	v, err := r.Get(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if v.UserID != userID {
		return nil, fmt.Errorf("video not found: %w", domain.ErrNotFound)
	}
	return v, nil
}

// ListByUser returns the user's videos, newest first.
func (r *VideoRepo) ListByUser(ctx context.Context, userID string) ([]domain.Video, error) {
	videos := []domain.Video{}
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-created_at-index"),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var batch []domain.Video
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		videos = append(videos, batch...)
	}
	return videos, nil
}

func (r *VideoRepo) Update(ctx context.Context, videoID string, updates map[string]interface{}) error {
	updates[fieldUpdatedAt] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("video_id", videoID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ConditionExpression:       aws.String("attribute_exists(video_id)"),
	})
	if isConditionFailed(err) {
		return fmt.Errorf("video not found: %w", domain.ErrNotFound)
	}
	return err
}
