package fixture

import (
	"context"

	"github.com/stackbench-io/stackbench/internal/logging"
	"github.com/stackbench-io/stackbench/internal/secrets"
	"github.com/stackbench-io/stackbench/internal/stack"
)

// TeardownResult records the outcome of one teardown step.
type TeardownResult struct {
	Name    string
	Region  string
	Skipped bool
	Err     error
}

// Controller guards the resources of one run and releases them at scope
// exit. Owned layers are deleted in strict reverse creation order, since
// earlier layers' resources stay referenced until their dependents are
// gone. Borrowed resources are never touched, and preserve mode skips
// deletion entirely.
type Controller struct {
	factory  *stack.Factory
	secrets  *secrets.Provisioner
	preserve bool

	layers   []Layer
	keys     []keyRef
	released bool
}

type keyRef struct {
	region string
	handle secrets.Handle
}

// NewController returns a Controller deleting through the given factory
// and secret provisioner.
func NewController(factory *stack.Factory, secretStore *secrets.Provisioner, preserve bool) *Controller {
	return &Controller{factory: factory, secrets: secretStore, preserve: preserve}
}

// TrackLayer registers a layer, in creation order.
func (c *Controller) TrackLayer(l Layer) {
	c.layers = append(c.layers, l)
}

// TrackSecret registers a secret for teardown. Borrowed secrets are
// ignored.
func (c *Controller) TrackSecret(region string, h secrets.Handle) {
	if h.Generated() {
		c.keys = append(c.keys, keyRef{region: region, handle: h})
	}
}

// Release tears down everything tracked and returns the per-resource
// outcomes. It is idempotent: a second call does nothing. Failures are
// collected, never raised, so one stuck resource cannot block the rest.
func (c *Controller) Release(ctx context.Context) []TeardownResult {
	if c.released {
		return nil
	}
	c.released = true

	var results []TeardownResult

	for i := len(c.layers) - 1; i >= 0; i-- {
		l := c.layers[i]
		switch {
		case l.Borrowed():
			results = append(results, TeardownResult{Name: l.Name(), Region: l.Region(), Skipped: true})
		case c.preserve:
			logging.Warn("not deleting stack because preserve mode is set", "name", l.Name(), "region", l.Region())
			results = append(results, TeardownResult{Name: l.Name(), Region: l.Region(), Skipped: true})
		default:
			r := c.factory.Delete(ctx, l.Name(), l.Region())
			results = append(results, TeardownResult{Name: r.Name, Region: r.Region, Err: r.Err})
		}
	}

	// Sweep stacks the factory still tracks, such as a creation that
	// failed before its layer was registered.
	if !c.preserve {
		for _, r := range c.factory.DeleteAll(ctx) {
			results = append(results, TeardownResult{Name: r.Name, Region: r.Region, Err: r.Err})
		}
	}

	for _, k := range c.keys {
		if c.preserve {
			logging.Warn("not deleting secret because preserve mode is set", "arn", k.handle.ARN)
			results = append(results, TeardownResult{Name: k.handle.ARN, Region: k.region, Skipped: true})
			continue
		}
		err := c.secrets.Delete(ctx, k.region, k.handle.ARN)
		results = append(results, TeardownResult{Name: k.handle.ARN, Region: k.region, Err: err})
	}

	return results
}
