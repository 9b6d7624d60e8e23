package dynamo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/creator-studio/internal/domain"
)

// VerificationRepo manages sign-in challenges.
// PK: subject (normalized email, or token id for claims), SK: type
type VerificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewVerificationRepo(client *dynamodb.Client, tableName string) *VerificationRepo {
	return &VerificationRepo{client: client, tableName: tableName}
}

// Put replaces any previous challenge for the same subject and type.
func (r *VerificationRepo) Put(ctx context.Context, v *domain.Verification) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *VerificationRepo) Get(ctx context.Context, subject, verType string) (*domain.Verification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            compositeKey("subject", subject, "type", verType),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	var v domain.Verification
	if err := attributevalue.UnmarshalMap(out.Item, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Consume deletes the challenge only while it still carries codeHash. A second
// redemption of the same code, or one racing a re-issue, gets ErrConflict.
func (r *VerificationRepo) Consume(ctx context.Context, subject, verType, codeHash string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       compositeKey("subject", subject, "type", verType),
		ConditionExpression:       aws.String("#h = :h"),
		ExpressionAttributeNames:  map[string]string{"#h": "code_hash"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":h": &types.AttributeValueMemberS{Value: codeHash}},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("challenge already used or replaced: %w", domain.ErrConflict)
	}
	return err
}

// RecordFailure bumps the failure counter of the challenge carrying codeHash
// and returns the new count. A challenge that was replaced meanwhile is left
// alone and reported as ErrConflict.
func (r *VerificationRepo) RecordFailure(ctx context.Context, subject, verType, codeHash string) (int, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 compositeKey("subject", subject, "type", verType),
		UpdateExpression:    aws.String("ADD #f :one"),
		ConditionExpression: aws.String("#h = :h"),
		ExpressionAttributeNames: map[string]string{
			"#f": "failures",
			"#h": "code_hash",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
			":h":   &types.AttributeValueMemberS{Value: codeHash},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if isConditionFailed(err) {
		return 0, fmt.Errorf("challenge replaced: %w", domain.ErrConflict)
	}
	if err != nil {
		return 0, err
	}
	n, ok := out.Attributes["failures"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, nil
	}
	return strconv.Atoi(n.Value)
}

// Claim records subject as used until expiresAt. Claiming the same subject
// twice returns ErrConflict.
func (r *VerificationRepo) Claim(ctx context.Context, subject, verType string, expiresAt int64) error {
	item, err := attributevalue.MarshalMap(&domain.Verification{
		Subject:   subject,
		Type:      verType,
		IssuedAt:  time.Now().Unix(),
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return fmt.Errorf("marshal claim: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#s)"),
		ExpressionAttributeNames: map[string]string{"#s": "subject"},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("%s already used: %w", verType, domain.ErrConflict)
	}
	return err
}
