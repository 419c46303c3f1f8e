// Package ami resolves the latest machine image for an OS family via the
// public SSM parameters the distributions publish.
package ami

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/stackbench-io/stackbench/internal/awsconfig"
)

// API is the slice of the SSM client the resolver uses.
type API interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ClientProvider returns an SSM client bound to a region.
type ClientProvider func(ctx context.Context, region string) (API, error)

// AWSClients returns a ClientProvider backed by real clients.
func AWSClients(loader *awsconfig.Loader) ClientProvider {
	return func(ctx context.Context, region string) (API, error) {
		cfg, err := loader.Load(ctx, region)
		if err != nil {
			return nil, err
		}
		return ssm.NewFromConfig(cfg), nil
	}
}

// parameterPaths maps OS families to the public SSM parameter holding the
// latest AMI id.
var parameterPaths = map[string]string{
	"alinux2":    "/aws/service/ami-amazon-linux-latest/amzn2-ami-hvm-x86_64-gp2",
	"alinux2023": "/aws/service/ami-amazon-linux-latest/al2023-ami-kernel-default-x86_64",
	"ubuntu2204": "/aws/service/canonical/ubuntu/server/22.04/stable/current/amd64/hvm/ebs-gp2/ami-id",
	"ubuntu2404": "/aws/service/canonical/ubuntu/server/24.04/stable/current/amd64/hvm/ebs-gp2/ami-id",
}

// Resolver resolves an OS family to an image id.
type Resolver interface {
	Resolve(ctx context.Context, region, osFamily string) (string, error)
}

// SSMResolver resolves images through SSM public parameters.
type SSMResolver struct {
	clients ClientProvider
}

// NewSSMResolver returns an SSMResolver.
func NewSSMResolver(clients ClientProvider) *SSMResolver {
	return &SSMResolver{clients: clients}
}

// Resolve looks up the latest AMI id for the OS family in the region.
func (r *SSMResolver) Resolve(ctx context.Context, region, osFamily string) (string, error) {
	path, ok := parameterPaths[osFamily]
	if !ok {
		return "", fmt.Errorf("no AMI parameter known for OS family %q", osFamily)
	}

	api, err := r.clients(ctx, region)
	if err != nil {
		return "", err
	}

	out, err := api.GetParameter(ctx, &ssm.GetParameterInput{Name: aws.String(path)})
	if err != nil {
		return "", fmt.Errorf("failed to resolve AMI for %s in %s: %w", osFamily, region, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("empty AMI parameter %s in %s", path, region)
	}
	return *out.Parameter.Value, nil
}
