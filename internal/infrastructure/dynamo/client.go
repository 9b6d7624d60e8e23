package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/creator-studio/internal/config"
	"github.com/creator-studio/internal/infrastructure/awsconf"
)

// NewClient creates a DynamoDB client. When cfg.AWSEndpointURL is set (LocalStack),
// it overrides the endpoint so all traffic goes to the local instance.
func NewClient(cfg *config.Config) *dynamodb.Client {
	awsCfg, err := awsconf.Load(context.Background(), cfg, "")
	if err != nil {
		panic("failed to load AWS config: " + err.Error())
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if ep := awsconf.Endpoint(cfg); ep != nil {
			o.BaseEndpoint = ep
		}
	})
}
