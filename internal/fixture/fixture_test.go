package fixture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/require"

	"github.com/stackbench-io/stackbench/internal/config"
	"github.com/stackbench-io/stackbench/internal/secrets"
	"github.com/stackbench-io/stackbench/internal/stack"
)

// fakeCFN satisfies stack.API. Every stack reaches its terminal state on
// the first describe, so the factory's waiters return without sleeping.
type fakeCFN struct {
	// outputs maps a stack-name prefix to the outputs the stack reports
	// once created. Stack names carry a run suffix, hence prefix matching.
	outputs map[string]map[string]string

	// failPrefix makes CreateStack fail for matching stack names.
	failPrefix string

	creates []*cloudformation.CreateStackInput
	deletes []string
	deleted map[string]bool
}

func newFakeCFN() *fakeCFN {
	return &fakeCFN{
		outputs: make(map[string]map[string]string),
		deleted: make(map[string]bool),
	}
}

func (f *fakeCFN) CreateStack(_ context.Context, in *cloudformation.CreateStackInput, _ ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error) {
	name := aws.ToString(in.StackName)
	if f.failPrefix != "" && strings.HasPrefix(name, f.failPrefix) {
		return nil, fmt.Errorf("creation of %s refused", name)
	}
	f.creates = append(f.creates, in)
	return &cloudformation.CreateStackOutput{StackId: in.StackName}, nil
}

func (f *fakeCFN) DeleteStack(_ context.Context, in *cloudformation.DeleteStackInput, _ ...func(*cloudformation.Options)) (*cloudformation.DeleteStackOutput, error) {
	name := aws.ToString(in.StackName)
	f.deletes = append(f.deletes, name)
	f.deleted[name] = true
	return &cloudformation.DeleteStackOutput{}, nil
}

func (f *fakeCFN) DescribeStacks(_ context.Context, in *cloudformation.DescribeStacksInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	name := aws.ToString(in.StackName)
	status := types.StackStatusCreateComplete
	if f.deleted[name] {
		status = types.StackStatusDeleteComplete
	}
	return &cloudformation.DescribeStacksOutput{
		Stacks: []types.Stack{{
			StackName:   in.StackName,
			StackStatus: status,
			Outputs:     f.outputsFor(name),
		}},
	}, nil
}

func (f *fakeCFN) outputsFor(name string) []types.Output {
	// Longest matching prefix wins: the database prefix is itself a prefix
	// of the slurmdbd one.
	best := ""
	for prefix := range f.outputs {
		if strings.HasPrefix(name, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return nil
	}

	values := f.outputs[best]
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []types.Output
	for _, k := range keys {
		out = append(out, types.Output{OutputKey: aws.String(k), OutputValue: aws.String(values[k])})
	}
	return out
}

// createInput returns the recorded CreateStack input whose name carries
// the given prefix.
func (f *fakeCFN) createInput(t *testing.T, prefix string) *cloudformation.CreateStackInput {
	t.Helper()
	for _, in := range f.creates {
		if strings.HasPrefix(aws.ToString(in.StackName), prefix) {
			return in
		}
	}
	t.Fatalf("no CreateStack call for prefix %s", prefix)
	return nil
}

func paramValue(t *testing.T, in *cloudformation.CreateStackInput, key string) string {
	t.Helper()
	for _, p := range in.Parameters {
		if aws.ToString(p.ParameterKey) == key {
			return aws.ToString(p.ParameterValue)
		}
	}
	t.Fatalf("stack %s has no parameter %s", aws.ToString(in.StackName), key)
	return ""
}

func hasParam(in *cloudformation.CreateStackInput, key string) bool {
	for _, p := range in.Parameters {
		if aws.ToString(p.ParameterKey) == key {
			return true
		}
	}
	return false
}

// fakeSecretsAPI satisfies secrets.API.
type fakeSecretsAPI struct {
	created []string
	deletes []*secretsmanager.DeleteSecretInput
	err     error
}

func (f *fakeSecretsAPI) CreateSecret(_ context.Context, in *secretsmanager.CreateSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	name := aws.ToString(in.Name)
	f.created = append(f.created, name)
	return &secretsmanager.CreateSecretOutput{
		ARN: aws.String("arn:aws:secretsmanager:eu-west-1:123456789012:secret:" + name),
	}, nil
}

func (f *fakeSecretsAPI) DeleteSecret(_ context.Context, in *secretsmanager.DeleteSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deletes = append(f.deletes, in)
	return &secretsmanager.DeleteSecretOutput{}, nil
}

// staticResolver resolves every OS family to a fixed image id.
type staticResolver string

func (r staticResolver) Resolve(context.Context, string, string) (string, error) {
	return string(r), nil
}

// failingResolver fails every lookup. Tests use it to prove a path never
// resolves an image.
type failingResolver struct{}

func (failingResolver) Resolve(context.Context, string, string) (string, error) {
	return "", fmt.Errorf("unexpected image resolution")
}

// staticSubnets serves a single subnet regardless of the requested id.
type staticSubnets struct {
	subnet Subnet
}

func (s staticSubnets) Describe(_ context.Context, _, subnetID string) (Subnet, error) {
	sub := s.subnet
	sub.ID = subnetID
	return sub, nil
}

func writeTemplate(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(`{"Resources": {}}`), 0o644))
	return path
}

func testRun(t *testing.T) *config.Run {
	t.Helper()
	dir := t.TempDir()
	return &config.Run{
		Region:               "eu-west-1",
		StackSuffix:          "ab12cd",
		KeyName:              "stackbench-key",
		OS:                   "alinux2023",
		AvailabilityZone:     "eu-west-1a",
		DatabaseTemplatePath: writeTemplate(t, dir, "database.json"),
		SlurmDbdTemplatePath: writeTemplate(t, dir, "slurmdbd.json"),
	}
}

// newTestContext wires a Context over fakes. The fake CloudFormation
// client reports the outputs each created layer is expected to expose.
func newTestContext(t *testing.T, run *config.Run) (*Context, *fakeCFN, *fakeSecretsAPI) {
	t.Helper()

	cfn := newFakeCFN()
	cfn.outputs[config.VPCStackPrefix] = map[string]string{
		"VpcId":                   "vpc-123",
		"PublicEuWest1aSubnetId":  "subnet-pub1",
		"PrivateEuWest1aSubnetId": "subnet-priv1",
	}
	cfn.outputs[config.DatabaseStackPrefix] = map[string]string{
		"DatabaseClientSecurityGroup": "sg-db-client",
		"DatabaseSecretArn":           "arn:aws:secretsmanager:eu-west-1:123456789012:secret:db-admin",
		"DatabaseHost":                "db.cluster.internal",
		"DatabaseAdminUser":           "clusteradmin",
	}
	cfn.outputs[config.SlurmDbdStackPrefix] = map[string]string{
		"SlurmdbdPrivateIp": "192.168.0.10",
	}

	sm := &fakeSecretsAPI{}

	factory := stack.NewFactory(func(context.Context, string) (stack.API, error) {
		return cfn, nil
	})
	provisioner := secrets.NewProvisioner(func(context.Context, string) (secrets.API, error) {
		return sm, nil
	}, "stackbench-munge-key")

	fc := &Context{
		Run:      run,
		Stacks:   factory,
		Secrets:  provisioner,
		Images:   staticResolver("ami-0abc1234"),
		Subnets:  staticSubnets{subnet: Subnet{VpcID: "vpc-123", CIDR: "192.168.0.0/19"}},
		Teardown: NewController(factory, provisioner, run.NoDelete),
	}
	return fc, cfn, sm
}
