package dynamo

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/creator-studio/internal/config"
)

// Bootstrap creates all DynamoDB tables and GSIs if they don't already exist.
// Safe to call on every startup.
func Bootstrap(ctx context.Context, client *dynamodb.Client, tables config.DynamoTables) {
	for _, in := range tableDefinitions(tables) {
		createTable(ctx, client, in)
	}
	enableTTL(ctx, client, tables.Verifications, "expires_at")
}

func tableDefinitions(tables config.DynamoTables) []*dynamodb.CreateTableInput {
	return []*dynamodb.CreateTableInput{
		table(tables.Users, "user_id", "",
			attrs(s("user_id"), s("email"), n("enable")),
			gsi("email-index", "email", ""),
			gsi("enable-index", "enable", ""),
		),
		table(tables.Sessions, "session_id", "",
			attrs(s("session_id"), s("user_id"), s("refresh_token")),
			gsi("user_id-index", "user_id", ""),
			gsi("refresh_token-index", "refresh_token", ""),
		),
		table(tables.Verifications, "subject", "type",
			attrs(s("subject"), s("type")),
		),
		table(tables.Notifications, "notification_id", "",
			attrs(s("notification_id"), s("user_id"), s("created_at")),
			gsi("user_id-created_at-index", "user_id", "created_at"),
		),
		table(tables.Videos, "video_id", "",
			attrs(s("video_id"), s("user_id"), s("created_at")),
			gsi("user_id-created_at-index", "user_id", "created_at"),
		),
		table(tables.VideoTasks, "video_id", "",
			attrs(s("video_id")),
		),
		table(tables.Transcripts, "transcript_id", "",
			attrs(s("transcript_id"), s("video_id"), s("created_at")),
			gsi("video_id-created_at-index", "video_id", "created_at"),
		),
		table(tables.Subtitles, "subtitle_id", "",
			attrs(s("subtitle_id"), s("video_id"), s("created_at")),
			gsi("video_id-created_at-index", "video_id", "created_at"),
		),
		table(tables.YouTubeIntegrations, "integration_id", "",
			attrs(s("integration_id"), s("user_id")),
			gsi("user_id-index", "user_id", ""),
		),
		table(tables.YouTubeUploads, "upload_id", "",
			attrs(s("upload_id"), s("user_id"), s("video_id"), s("created_at")),
			gsi("user_id-created_at-index", "user_id", "created_at"),
			gsi("video_id-index", "video_id", ""),
		),
	}
}

func table(name, hashKey, rangeKey string, defs []types.AttributeDefinition, indexes ...types.GlobalSecondaryIndex) *dynamodb.CreateTableInput {
	ks := []types.KeySchemaElement{{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash}}
	if rangeKey != "" {
		ks = append(ks, types.KeySchemaElement{AttributeName: aws.String(rangeKey), KeyType: types.KeyTypeRange})
	}
	in := &dynamodb.CreateTableInput{
		TableName:            aws.String(name),
		BillingMode:          types.BillingModePayPerRequest,
		AttributeDefinitions: defs,
		KeySchema:            ks,
	}
	if len(indexes) > 0 {
		in.GlobalSecondaryIndexes = indexes
	}
	return in
}

func attrs(defs ...types.AttributeDefinition) []types.AttributeDefinition { return defs }

func s(name string) types.AttributeDefinition {
	return types.AttributeDefinition{AttributeName: aws.String(name), AttributeType: types.ScalarAttributeTypeS}
}

func n(name string) types.AttributeDefinition {
	return types.AttributeDefinition{AttributeName: aws.String(name), AttributeType: types.ScalarAttributeTypeN}
}

// gsi builds a GSI descriptor. If sortKey is empty, only a hash key is added.
func gsi(indexName, hashKey, sortKey string) types.GlobalSecondaryIndex {
	ks := []types.KeySchemaElement{
		{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash},
	}
	if sortKey != "" {
		ks = append(ks, types.KeySchemaElement{
			AttributeName: aws.String(sortKey), KeyType: types.KeyTypeRange,
		})
	}
	return types.GlobalSecondaryIndex{
		IndexName:  aws.String(indexName),
		KeySchema:  ks,
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}

func createTable(ctx context.Context, client *dynamodb.Client, input *dynamodb.CreateTableInput) {
	_, err := client.CreateTable(ctx, input)
	if err != nil {
		// ResourceInUseException means the table already exists.
		var riue *types.ResourceInUseException
		if !errors.As(err, &riue) {
			slog.Warn("could not create table", "table", *input.TableName, "err", err)
		}
		return
	}
	slog.Info("created table", "table", *input.TableName)
}

func enableTTL(ctx context.Context, client *dynamodb.Client, tableName, ttlAttr string) {
	_, err := client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(tableName),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			Enabled:       aws.Bool(true),
			AttributeName: aws.String(ttlAttr),
		},
	})
	if err != nil {
		slog.Warn("could not enable TTL", "table", tableName, "err", err)
	}
}
