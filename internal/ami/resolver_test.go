package ami

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSSM struct {
	values   map[string]string
	err      error
	requests []string
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	name := aws.ToString(in.Name)
	f.requests = append(f.requests, name)
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.values[name]
	if !ok {
		return nil, fmt.Errorf("parameter %s not found", name)
	}
	return &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{Value: aws.String(v)},
	}, nil
}

func staticClients(api API) ClientProvider {
	return func(context.Context, string) (API, error) { return api, nil }
}

func TestResolve(t *testing.T) {
	api := &fakeSSM{values: map[string]string{
		"/aws/service/ami-amazon-linux-latest/al2023-ami-kernel-default-x86_64": "ami-0abc1234",
	}}
	r := NewSSMResolver(staticClients(api))

	id, err := r.Resolve(context.Background(), "eu-west-1", "alinux2023")
	require.NoError(t, err)
	assert.Equal(t, "ami-0abc1234", id)
	assert.Equal(t, []string{"/aws/service/ami-amazon-linux-latest/al2023-ami-kernel-default-x86_64"}, api.requests)
}

func TestResolve_UnknownOSFamily(t *testing.T) {
	api := &fakeSSM{}
	r := NewSSMResolver(staticClients(api))

	_, err := r.Resolve(context.Background(), "eu-west-1", "windows2022")
	assert.ErrorContains(t, err, "windows2022")
	assert.Empty(t, api.requests, "unknown families must fail before any lookup")
}

func TestResolve_LookupFailure(t *testing.T) {
	r := NewSSMResolver(staticClients(&fakeSSM{err: fmt.Errorf("throttled")}))

	_, err := r.Resolve(context.Background(), "eu-west-1", "ubuntu2204")
	assert.ErrorContains(t, err, "ubuntu2204")
}
