package stack

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/smithy-go"

	"github.com/stackbench-io/stackbench/internal/logging"
)

const (
	defaultCreateTimeout = 45 * time.Minute
	defaultDeleteTimeout = 30 * time.Minute
)

// API is the slice of the CloudFormation client the Factory depends on.
// *cloudformation.Client satisfies it; tests inject fakes.
type API interface {
	cloudformation.DescribeStacksAPIClient
	CreateStack(ctx context.Context, params *cloudformation.CreateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error)
	DeleteStack(ctx context.Context, params *cloudformation.DeleteStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DeleteStackOutput, error)
}

// ClientProvider returns a CloudFormation client bound to the given region.
type ClientProvider func(ctx context.Context, region string) (API, error)

// ProvisioningError reports a failed or timed-out stack creation.
type ProvisioningError struct {
	StackName string
	Region    string
	Err       error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provisioning stack %s in %s: %v", e.StackName, e.Region, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// DeleteResult records the outcome of one delete attempt. Teardown is
// best-effort, so failures are collected instead of raised.
type DeleteResult struct {
	Name   string
	Region string
	Err    error
}

type stackKey struct {
	name   string
	region string
}

// Factory creates CloudFormation stacks, blocks until the provider reaches
// a terminal state, and tracks every stack it attempted for later teardown.
// It is not safe for concurrent use; provisioning is sequential.
type Factory struct {
	clients       ClientProvider
	createTimeout time.Duration
	deleteTimeout time.Duration

	tracked map[stackKey]*Stack
	order   []stackKey
}

// NewFactory returns a Factory using the given client provider.
func NewFactory(clients ClientProvider) *Factory {
	return &Factory{
		clients:       clients,
		createTimeout: defaultCreateTimeout,
		deleteTimeout: defaultDeleteTimeout,
		tracked:       make(map[stackKey]*Stack),
	}
}

// Create submits the stack and blocks until CloudFormation reports a
// terminal state, then populates the descriptor's outputs. The stack is
// added to the tracked set before submission so a partial or failed
// creation is still cleaned up by DeleteAll.
func (f *Factory) Create(ctx context.Context, s *Stack) error {
	api, err := f.clients(ctx, s.Region)
	if err != nil {
		return &ProvisioningError{StackName: s.Name, Region: s.Region, Err: err}
	}

	f.track(s)

	logging.Info("creating stack", "name", s.Name, "region", s.Region)

	input := &cloudformation.CreateStackInput{
		StackName:    aws.String(s.Name),
		TemplateBody: aws.String(s.TemplateBody),
	}
	for _, p := range s.Parameters {
		input.Parameters = append(input.Parameters, types.Parameter{
			ParameterKey:   aws.String(p.Key),
			ParameterValue: aws.String(p.Value),
		})
	}
	for _, c := range s.Capabilities {
		input.Capabilities = append(input.Capabilities, types.Capability(c))
	}

	if _, err := api.CreateStack(ctx, input); err != nil {
		return &ProvisioningError{StackName: s.Name, Region: s.Region, Err: err}
	}

	waiter := cloudformation.NewStackCreateCompleteWaiter(api)
	out, err := waiter.WaitForOutput(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(s.Name),
	}, f.createTimeout)
	if err != nil {
		return &ProvisioningError{StackName: s.Name, Region: s.Region, Err: err}
	}
	if len(out.Stacks) == 0 {
		return &ProvisioningError{StackName: s.Name, Region: s.Region, Err: errors.New("stack not found after creation")}
	}

	s.setOutputs(flattenOutputs(out.Stacks[0].Outputs))
	logging.Info("stack created", "name", s.Name, "region", s.Region)
	return nil
}

// Delete requests deletion of the named stack and waits for completion.
// The stack is removed from the tracked set regardless of outcome, and a
// failure is logged and returned as a result, never as an error: one stuck
// stack must not abort cleanup of its peers.
func (f *Factory) Delete(ctx context.Context, name, region string) DeleteResult {
	delete(f.tracked, stackKey{name: name, region: region})

	res := DeleteResult{Name: name, Region: region}

	api, err := f.clients(ctx, region)
	if err != nil {
		res.Err = err
		logging.Warn("skipping stack deletion", "name", name, "region", region, "error", err)
		return res
	}

	logging.Info("deleting stack", "name", name, "region", region)

	if _, err := api.DeleteStack(ctx, &cloudformation.DeleteStackInput{
		StackName: aws.String(name),
	}); err != nil {
		if stackGone(err) {
			return res
		}
		res.Err = err
		logging.Warn("stack deletion failed", "name", name, "region", region, "error", err)
		return res
	}

	waiter := cloudformation.NewStackDeleteCompleteWaiter(api)
	if err := waiter.Wait(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(name),
	}, f.deleteTimeout); err != nil && !stackGone(err) {
		res.Err = err
		logging.Warn("stack deletion did not complete", "name", name, "region", region, "error", err)
	}
	return res
}

// DeleteAll deletes every tracked stack in reverse tracking order and
// returns the per-stack outcomes.
func (f *Factory) DeleteAll(ctx context.Context) []DeleteResult {
	var results []DeleteResult
	for i := len(f.order) - 1; i >= 0; i-- {
		key := f.order[i]
		if _, ok := f.tracked[key]; !ok {
			continue
		}
		results = append(results, f.Delete(ctx, key.name, key.region))
	}
	return results
}

// Tracked reports whether the named stack is in the tracked set.
func (f *Factory) Tracked(name, region string) bool {
	_, ok := f.tracked[stackKey{name: name, region: region}]
	return ok
}

func (f *Factory) track(s *Stack) {
	key := stackKey{name: s.Name, region: s.Region}
	if _, ok := f.tracked[key]; !ok {
		f.order = append(f.order, key)
	}
	f.tracked[key] = s
}

// stackGone reports whether the error means the stack no longer exists.
// CloudFormation surfaces this as a ValidationError.
func stackGone(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ValidationError"
}

func flattenOutputs(outputs []types.Output) map[string]string {
	flat := make(map[string]string, len(outputs))
	for _, o := range outputs {
		if o.OutputKey != nil && o.OutputValue != nil {
			flat[*o.OutputKey] = *o.OutputValue
		}
	}
	return flat
}
