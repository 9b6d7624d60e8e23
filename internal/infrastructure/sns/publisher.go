package sns

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/creator-studio/internal/config"
	"github.com/creator-studio/internal/infrastructure/awsconf"
)

// EventPublisher fans domain events out to an SNS topic.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

type publisher struct {
	client   *sns.Client
	topicARN string
}

// NewPublisher returns a publisher for cfg.SNSTaskTopicARN, or a no-op
// publisher when no topic is configured.
func NewPublisher(cfg *config.Config) (EventPublisher, error) {
	if cfg.SNSTaskTopicARN == "" {
		return Noop{}, nil
	}
	awsCfg, err := awsconf.Load(context.Background(), cfg, cfg.SNSRegion)
	if err != nil {
		return nil, err
	}
	client := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if ep := awsconf.Endpoint(cfg); ep != nil {
			o.BaseEndpoint = ep
		}
	})
	return &publisher{client: client, topicARN: cfg.SNSTaskTopicARN}, nil
}

func (p *publisher) Publish(ctx context.Context, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", eventType, err)
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(eventType)},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish %s: %w", eventType, err)
	}
	return nil
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }
