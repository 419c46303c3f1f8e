package fixture

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/stackbench-io/stackbench/internal/ami"
	"github.com/stackbench-io/stackbench/internal/awsconfig"
	"github.com/stackbench-io/stackbench/internal/config"
	"github.com/stackbench-io/stackbench/internal/network"
	"github.com/stackbench-io/stackbench/internal/secrets"
	"github.com/stackbench-io/stackbench/internal/stack"
)

// Subnet is the slice of subnet metadata layer derivation needs.
type Subnet struct {
	ID    string
	VpcID string
	CIDR  string
}

// SubnetReader looks up subnet metadata.
type SubnetReader interface {
	Describe(ctx context.Context, region, subnetID string) (Subnet, error)
}

// ec2API is the slice of the EC2 client the subnet reader uses.
type ec2API interface {
	DescribeSubnets(ctx context.Context, params *ec2.DescribeSubnetsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error)
}

// EC2ClientProvider returns an EC2 client bound to a region.
type EC2ClientProvider func(ctx context.Context, region string) (ec2API, error)

// AWSSubnetReader reads subnet metadata through the EC2 API.
type AWSSubnetReader struct {
	clients EC2ClientProvider
}

// NewAWSSubnetReader returns a reader backed by real EC2 clients.
func NewAWSSubnetReader(loader *awsconfig.Loader) *AWSSubnetReader {
	return &AWSSubnetReader{clients: func(ctx context.Context, region string) (ec2API, error) {
		cfg, err := loader.Load(ctx, region)
		if err != nil {
			return nil, err
		}
		return ec2.NewFromConfig(cfg), nil
	}}
}

// NewSubnetReader returns a reader over a custom client provider. Tests
// use it to inject fakes.
func NewSubnetReader(clients EC2ClientProvider) *AWSSubnetReader {
	return &AWSSubnetReader{clients: clients}
}

// Describe returns the metadata of one subnet.
func (r *AWSSubnetReader) Describe(ctx context.Context, region, subnetID string) (Subnet, error) {
	api, err := r.clients(ctx, region)
	if err != nil {
		return Subnet{}, err
	}

	out, err := api.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{
		SubnetIds: []string{subnetID},
	})
	if err != nil {
		return Subnet{}, fmt.Errorf("failed to describe subnet %s: %w", subnetID, err)
	}
	if len(out.Subnets) == 0 {
		return Subnet{}, fmt.Errorf("subnet %s not found in %s", subnetID, region)
	}

	s := out.Subnets[0]
	return Subnet{
		ID:    aws.ToString(s.SubnetId),
		VpcID: aws.ToString(s.VpcId),
		CIDR:  aws.ToString(s.CidrBlock),
	}, nil
}

// Context carries the run configuration, the collaborators, and the state
// shared between layer derivations. Layer functions take it explicitly
// instead of relying on ambient per-scope caches.
type Context struct {
	Run      *config.Run
	Stacks   *stack.Factory
	Secrets  *secrets.Provisioner
	Images   ami.Resolver
	Subnets  SubnetReader
	Teardown *Controller

	// Topology is the network configuration the network layer was built
	// from, recorded so later layers can locate its subnets.
	Topology network.VPCConfig
}
