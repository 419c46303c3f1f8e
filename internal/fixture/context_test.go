package fixture

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEC2 struct {
	subnets map[string]ec2types.Subnet
}

func (f *fakeEC2) DescribeSubnets(_ context.Context, in *ec2.DescribeSubnetsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error) {
	out := &ec2.DescribeSubnetsOutput{}
	for _, id := range in.SubnetIds {
		if s, ok := f.subnets[id]; ok {
			out.Subnets = append(out.Subnets, s)
		}
	}
	return out, nil
}

func TestSubnetReader_Describe(t *testing.T) {
	api := &fakeEC2{subnets: map[string]ec2types.Subnet{
		"subnet-1": {
			SubnetId:  aws.String("subnet-1"),
			VpcId:     aws.String("vpc-1"),
			CidrBlock: aws.String("192.168.0.0/19"),
		},
	}}
	reader := NewSubnetReader(func(context.Context, string) (ec2API, error) {
		return api, nil
	})

	subnet, err := reader.Describe(context.Background(), "eu-west-1", "subnet-1")
	require.NoError(t, err)
	assert.Equal(t, Subnet{ID: "subnet-1", VpcID: "vpc-1", CIDR: "192.168.0.0/19"}, subnet)
}

func TestSubnetReader_NotFound(t *testing.T) {
	reader := NewSubnetReader(func(context.Context, string) (ec2API, error) {
		return &fakeEC2{}, nil
	})

	_, err := reader.Describe(context.Background(), "eu-west-1", "subnet-missing")
	assert.ErrorContains(t, err, "subnet-missing")
}

func TestSubnetReader_ClientError(t *testing.T) {
	reader := NewSubnetReader(func(context.Context, string) (ec2API, error) {
		return nil, fmt.Errorf("no credentials")
	})

	_, err := reader.Describe(context.Background(), "eu-west-1", "subnet-1")
	assert.ErrorContains(t, err, "no credentials")
}
