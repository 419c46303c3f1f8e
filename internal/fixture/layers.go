package fixture

import (
	"context"
	"fmt"
	"os"

	"github.com/stackbench-io/stackbench/internal/config"
	"github.com/stackbench-io/stackbench/internal/logging"
	"github.com/stackbench-io/stackbench/internal/network"
	"github.com/stackbench-io/stackbench/internal/secrets"
	"github.com/stackbench-io/stackbench/internal/stack"
)

// NetworkLayer provisions the VPC stack, or borrows the one named in the
// run configuration. The topology it was built from is recorded on the
// context for later layers.
func NetworkLayer(ctx context.Context, fc *Context) (Layer, error) {
	run := fc.Run

	if run.VPCStackName != "" {
		logging.Info("using pre-existing VPC stack", "name", run.VPCStackName)
		return BorrowedLayer(run.VPCStackName, run.Region), nil
	}

	topology := fc.Topology
	if len(topology.Subnets) == 0 {
		if run.TopologyPath != "" {
			t, err := config.LoadTopology(run.TopologyPath)
			if err != nil {
				return Layer{}, err
			}
			topology = t
		} else {
			topology = network.DefaultTopology(run.AvailabilityZone, run.AvailabilityZone)
		}
	}
	fc.Topology = topology

	tmpl, err := network.NewTemplateBuilder(topology, run.AvailabilityZone).Build()
	if err != nil {
		return Layer{}, err
	}
	body, err := tmpl.JSON()
	if err != nil {
		return Layer{}, err
	}

	s := stack.New(run.StackName(config.VPCStackPrefix), run.Region, body, nil, nil)
	if err := fc.Stacks.Create(ctx, s); err != nil {
		return Layer{}, err
	}
	return CreatedLayer(s), nil
}

// MungeKey provisions the shared munge key secret, or borrows the secret
// named in the run configuration.
func MungeKey(ctx context.Context, fc *Context) (secrets.Handle, error) {
	if arn := fc.Run.MungeKeySecretARN; arn != "" {
		logging.Info("using pre-existing munge key secret", "arn", arn)
		return secrets.UseExisting(arn), nil
	}
	return fc.Secrets.Provision(ctx, fc.Run.Region)
}

// DatabaseLayer provisions the serverless database stack on top of the
// network layer, or borrows the stack named in the run configuration. A
// fresh cluster name and admin password are generated per run.
func DatabaseLayer(ctx context.Context, fc *Context, networkLayer Layer) (Layer, error) {
	run := fc.Run

	if run.DatabaseStackName != "" {
		logging.Info("using pre-existing database stack", "name", run.DatabaseStackName)
		return BorrowedLayer(run.DatabaseStackName, run.Region), nil
	}

	var vpcID string
	if networkLayer.Borrowed() {
		if run.VPCID == "" {
			return Layer{}, &MissingOverrideError{Layer: "network", Field: "vpc-id"}
		}
		vpcID = run.VPCID
	} else {
		v, err := networkLayer.Output("VpcId")
		if err != nil {
			return Layer{}, err
		}
		vpcID = v
	}

	body, err := os.ReadFile(run.DatabaseTemplatePath)
	if err != nil {
		return Layer{}, fmt.Errorf("failed to read database template: %w", err)
	}

	custom := network.CIDRForCustomSubnets
	params := []stack.Parameter{
		{Key: "ClusterName", Value: GenerateClusterName()},
		{Key: "Vpc", Value: vpcID},
		{Key: "AdminPasswordSecretString", Value: GeneratePassword()},
		{Key: "Subnet1CidrBlock", Value: custom[len(custom)-1]},
		{Key: "Subnet2CidrBlock", Value: custom[len(custom)-2]},
	}

	s := stack.New(run.StackName(config.DatabaseStackPrefix), run.Region, string(body), params, []string{"CAPABILITY_AUTO_EXPAND"})
	if err := fc.Stacks.Create(ctx, s); err != nil {
		return Layer{}, err
	}
	return CreatedLayer(s), nil
}

// databaseValue resolves one database-derived parameter: the output of a
// created database layer, or the configured override when the layer is
// borrowed.
func databaseValue(db Layer, outputKey, override, overrideFlag string) (string, error) {
	if !db.Borrowed() {
		return db.Output(outputKey)
	}
	if override == "" {
		return "", &MissingOverrideError{Layer: "database", Field: overrideFlag}
	}
	return override, nil
}

// SlurmDbdLayer provisions the external slurmdbd stack on top of the
// network and database layers, or borrows the stack named in the run
// configuration. The instance gets a private IP chosen at random from the
// public subnet's usable host range.
func SlurmDbdLayer(ctx context.Context, fc *Context, networkLayer, databaseLayer Layer, mungeKey secrets.Handle) (Layer, error) {
	run := fc.Run

	if run.SlurmDbdStackName != "" {
		logging.Info("using pre-existing slurmdbd stack", "name", run.SlurmDbdStackName)
		return BorrowedLayer(run.SlurmDbdStackName, run.Region), nil
	}

	var subnetID string
	if networkLayer.Borrowed() {
		if run.PublicSubnetID == "" {
			return Layer{}, &MissingOverrideError{Layer: "network", Field: "public-subnet-id"}
		}
		subnetID = run.PublicSubnetID
	} else {
		public, ok := fc.Topology.PublicSubnet()
		if !ok {
			return Layer{}, fmt.Errorf("topology has no public subnet for the slurmdbd instance")
		}
		v, err := networkLayer.Output(network.SubnetOutputKey(public))
		if err != nil {
			return Layer{}, err
		}
		subnetID = v
	}

	subnet, err := fc.Subnets.Describe(ctx, run.Region, subnetID)
	if err != nil {
		return Layer{}, err
	}

	privateIP, err := RandomHostIP(subnet.CIDR)
	if err != nil {
		return Layer{}, err
	}
	prefixLen, err := PrefixLength(subnet.CIDR)
	if err != nil {
		return Layer{}, err
	}

	amiID := run.CustomAMI
	if amiID == "" {
		amiID, err = fc.Images.Resolve(ctx, run.Region, run.OS)
		if err != nil {
			return Layer{}, err
		}
	}

	dbSecurityGroup, err := databaseValue(databaseLayer, "DatabaseClientSecurityGroup", run.DatabaseClientSecurityGroup, "database-client-security-group")
	if err != nil {
		return Layer{}, err
	}
	dbSecretARN, err := databaseValue(databaseLayer, "DatabaseSecretArn", run.DatabaseSecretARN, "database-secret-arn")
	if err != nil {
		return Layer{}, err
	}
	dbHost, err := databaseValue(databaseLayer, "DatabaseHost", run.DatabaseHost, "database-host")
	if err != nil {
		return Layer{}, err
	}
	dbAdminUser, err := databaseValue(databaseLayer, "DatabaseAdminUser", run.DatabaseAdminUser, "database-admin-user")
	if err != nil {
		return Layer{}, err
	}

	body, err := os.ReadFile(run.SlurmDbdTemplatePath)
	if err != nil {
		return Layer{}, fmt.Errorf("failed to read slurmdbd template: %w", err)
	}

	params := []stack.Parameter{
		{Key: "AmiId", Value: amiID},
		{Key: "DBMSClientSG", Value: dbSecurityGroup},
		{Key: "DBMSDatabaseName", Value: "slurm_database"},
		{Key: "DBMSPasswordSecretArn", Value: dbSecretARN},
		{Key: "DBMSUri", Value: dbHost},
		{Key: "DBMSUsername", Value: dbAdminUser},
		{Key: "InstanceType", Value: "c5.large"},
		{Key: "KeyName", Value: run.KeyName},
		{Key: "MungeKeySecretArn", Value: mungeKey.ARN},
		{Key: "PrivateIp", Value: privateIP},
		{Key: "PrivatePrefix", Value: prefixLen},
		{Key: "SubnetId", Value: subnet.ID},
		{Key: "SlurmdbdPort", Value: "6819"},
		{Key: "VPCId", Value: subnet.VpcID},
		{Key: "EnableSlurmdbdSystemService", Value: "true"},
	}
	// Omitted entirely when not configured; the template default applies.
	if run.CustomCookbookURL != "" {
		params = append(params, stack.Parameter{Key: "CustomCookbookUrl", Value: run.CustomCookbookURL})
	}

	s := stack.New(run.StackName(config.SlurmDbdStackPrefix), run.Region, string(body), params,
		[]string{"CAPABILITY_AUTO_EXPAND", "CAPABILITY_NAMED_IAM"})
	if err := fc.Stacks.Create(ctx, s); err != nil {
		return Layer{}, err
	}
	return CreatedLayer(s), nil
}
