package fixture

import (
	"context"

	"github.com/stackbench-io/stackbench/internal/secrets"
)

// Chain is the fully provisioned layer chain of one run.
type Chain struct {
	Network  Layer
	Database Layer
	SlurmDbd Layer
	MungeKey secrets.Handle
}

// Provision stands up the chain in dependency order: network, munge key,
// database, slurmdbd. Each step is registered with the teardown controller
// as soon as it exists, so a failure partway leaves the completed steps
// releasable; the partial chain is returned together with the error and
// dependent layers are never attempted.
func Provision(ctx context.Context, fc *Context) (*Chain, error) {
	c := &Chain{}

	networkLayer, err := NetworkLayer(ctx, fc)
	if err != nil {
		return c, err
	}
	c.Network = networkLayer
	fc.Teardown.TrackLayer(networkLayer)

	mungeKey, err := MungeKey(ctx, fc)
	if err != nil {
		return c, err
	}
	c.MungeKey = mungeKey
	fc.Teardown.TrackSecret(fc.Run.Region, mungeKey)

	databaseLayer, err := DatabaseLayer(ctx, fc, networkLayer)
	if err != nil {
		return c, err
	}
	c.Database = databaseLayer
	fc.Teardown.TrackLayer(databaseLayer)

	slurmDbdLayer, err := SlurmDbdLayer(ctx, fc, networkLayer, databaseLayer, mungeKey)
	if err != nil {
		return c, err
	}
	c.SlurmDbd = slurmDbdLayer
	fc.Teardown.TrackLayer(slurmDbdLayer)

	return c, nil
}
