package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/creator-studio/internal/domain"
)

// TranscriptRepo stores transcript rows. PK: transcript_id, GSI video_id-created_at-index.
type TranscriptRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewTranscriptRepo(client *dynamodb.Client, tableName string) *TranscriptRepo {
	return &TranscriptRepo{client: client, tableName: tableName}
}

func (r *TranscriptRepo) Put(ctx context.Context, t *domain.Transcript) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// ListByVideo returns the transcripts of a video, newest first.
func (r *TranscriptRepo) ListByVideo(ctx context.Context, videoID string) ([]domain.Transcript, error) {
	items, err := queryByVideo(ctx, r.client, r.tableName, videoID)
	if err != nil {
		return nil, err
	}
	out := []domain.Transcript{}
	if err := attributevalue.UnmarshalListOfMaps(items, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubtitleRepo stores caption rows. PK: subtitle_id, GSI video_id-created_at-index.
type SubtitleRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSubtitleRepo(client *dynamodb.Client, tableName string) *SubtitleRepo {
	return &SubtitleRepo{client: client, tableName: tableName}
}

func (r *SubtitleRepo) Put(ctx context.Context, s *domain.Subtitle) error {
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal subtitle: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// ListByVideo returns the caption tracks of a video, newest first.
func (r *SubtitleRepo) ListByVideo(ctx context.Context, videoID string) ([]domain.Subtitle, error) {
	items, err := queryByVideo(ctx, r.client, r.tableName, videoID)
	if err != nil {
		return nil, err
	}
	out := []domain.Subtitle{}
	if err := attributevalue.UnmarshalListOfMaps(items, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func queryByVideo(ctx context.Context, client *dynamodb.Client, table, videoID string) ([]map[string]types.AttributeValue, error) {
	out, err := client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(table),
		IndexName:              aws.String("video_id-created_at-index"),
		KeyConditionExpression: aws.String("video_id = :vid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":vid": &types.AttributeValueMemberS{Value: videoID},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	return out.Items, nil
}
