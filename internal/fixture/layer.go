// Package fixture composes the layered provisioning chain: network stack,
// database stack and the dependent slurmdbd stack, each either created for
// the run or borrowed by name.
package fixture

import (
	"errors"
	"fmt"

	"github.com/stackbench-io/stackbench/internal/stack"
)

// ErrBorrowedOutputs is returned when a derivation would need the outputs
// of a borrowed stack. Borrowed stacks are referenced by name only; a run
// that borrows a layer must supply the dependent values explicitly.
var ErrBorrowedOutputs = errors.New("outputs of a borrowed stack are not available")

// MissingOverrideError reports a borrowed layer without the explicit value
// a dependent layer needs in place of its outputs. This is a precondition
// violation in the run configuration.
type MissingOverrideError struct {
	Layer string
	Field string
}

func (e *MissingOverrideError) Error() string {
	return fmt.Sprintf("layer %s is borrowed: configuration must supply %s", e.Layer, e.Field)
}

func (e *MissingOverrideError) Unwrap() error { return ErrBorrowedOutputs }

// LayerKind tags a layer's variant.
type LayerKind int

const (
	// LayerBorrowed references a pre-existing stack by name. It is never
	// created or deleted by this run.
	LayerBorrowed LayerKind = iota + 1
	// LayerCreated is a stack owned by this run and tracked for teardown.
	LayerCreated
)

// Layer is one link of the provisioning chain.
type Layer struct {
	Kind  LayerKind
	Stack *stack.Stack
}

// BorrowedLayer returns a layer referencing an existing stack.
func BorrowedLayer(name, region string) Layer {
	return Layer{Kind: LayerBorrowed, Stack: stack.NewExisting(name, region)}
}

// CreatedLayer returns a layer owning the given created stack.
func CreatedLayer(s *stack.Stack) Layer {
	return Layer{Kind: LayerCreated, Stack: s}
}

// Borrowed reports whether the layer references a pre-existing stack.
func (l Layer) Borrowed() bool { return l.Kind == LayerBorrowed }

// Name returns the stack name.
func (l Layer) Name() string { return l.Stack.Name }

// Region returns the stack region.
func (l Layer) Region() string { return l.Stack.Region }

// Outputs returns the created stack's outputs, or nil for borrowed layers.
func (l Layer) Outputs() map[string]string { return l.Stack.Outputs() }

// Output returns one output of a created layer. Reading outputs of a
// borrowed layer fails with ErrBorrowedOutputs.
func (l Layer) Output(key string) (string, error) {
	if l.Borrowed() {
		return "", fmt.Errorf("%w: %s of stack %s", ErrBorrowedOutputs, key, l.Stack.Name)
	}
	v, ok := l.Stack.Output(key)
	if !ok {
		return "", fmt.Errorf("stack %s has no output %s", l.Stack.Name, key)
	}
	return v, nil
}
