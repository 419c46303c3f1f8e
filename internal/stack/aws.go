package stack

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/cloudformation"

	"github.com/stackbench-io/stackbench/internal/awsconfig"
)

// AWSClients returns a ClientProvider backed by real CloudFormation clients.
func AWSClients(loader *awsconfig.Loader) ClientProvider {
	return func(ctx context.Context, region string) (API, error) {
		cfg, err := loader.Load(ctx, region)
		if err != nil {
			return nil, err
		}
		return cloudformation.NewFromConfig(cfg), nil
	}
}
