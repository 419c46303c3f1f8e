// Package stack provides the CloudFormation stack descriptor and the
// factory that provisions and tears down tracked stacks.
package stack

import (
	"fmt"
	"maps"
)

// Parameter is a single template parameter. Parameters are kept as an
// ordered slice so the request sent to CloudFormation preserves the order
// in which the caller derived them.
type Parameter struct {
	Key   string
	Value string
}

// Stack describes one provisionable CloudFormation stack. The request
// fields are set at construction; Outputs becomes available only after the
// Factory reports successful creation.
type Stack struct {
	Name         string
	Region       string
	TemplateBody string
	Parameters   []Parameter
	Capabilities []string

	outputs map[string]string
}

// New returns a descriptor for a stack to be created by the Factory.
func New(name, region, template string, params []Parameter, capabilities []string) *Stack {
	return &Stack{
		Name:         name,
		Region:       region,
		TemplateBody: template,
		Parameters:   params,
		Capabilities: capabilities,
	}
}

// NewExisting returns a descriptor referencing a pre-existing stack. It has
// no template and no outputs, and is never created or deleted by the
// Factory.
func NewExisting(name, region string) *Stack {
	return &Stack{Name: name, Region: region}
}

// Existing reports whether the descriptor references a pre-existing stack.
func (s *Stack) Existing() bool {
	return s.TemplateBody == ""
}

// Outputs returns the provider-reported outputs, or nil before successful
// creation. The returned map is a copy; outputs are read-only once set.
func (s *Stack) Outputs() map[string]string {
	return maps.Clone(s.outputs)
}

// Output returns a single output value.
func (s *Stack) Output(key string) (string, bool) {
	v, ok := s.outputs[key]
	return v, ok
}

// setOutputs records the provider outputs. Outputs are write-once: a second
// call is a programming error and panics.
func (s *Stack) setOutputs(outputs map[string]string) {
	if s.outputs != nil {
		panic(fmt.Sprintf("stack %s: outputs already set", s.Name))
	}
	s.outputs = outputs
}
