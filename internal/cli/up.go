package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/stackbench-io/stackbench/internal/ami"
	"github.com/stackbench-io/stackbench/internal/awsconfig"
	"github.com/stackbench-io/stackbench/internal/config"
	"github.com/stackbench-io/stackbench/internal/fixture"
	"github.com/stackbench-io/stackbench/internal/secrets"
	"github.com/stackbench-io/stackbench/internal/stack"
)

var upRun config.Run

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Provision the stack chain",
	Long: `Provisions the network, database and slurmdbd stacks in dependency
order, printing each layer's outputs.

By default the run is a full lifecycle check: everything it created is
deleted again before the command returns. Pass --keep to leave the
stacks in place.`,
	RunE: runUp,
}

func init() {
	f := upCmd.Flags()
	f.StringVar(&upRun.Region, "region", "", "Target AWS region")
	f.StringVar(&upRun.Credential, "credential", "", "Shared-config profile to use")
	f.StringVar(&upRun.StackSuffix, "suffix", "", "Stack name suffix (generated when empty)")
	f.StringVar(&upRun.KeyName, "key-name", "", "EC2 key pair for the slurmdbd instance")
	f.StringVar(&upRun.OS, "os", "", "OS family for AMI resolution (default alinux2023)")
	f.StringVar(&upRun.AvailabilityZone, "az", "", "Availability zone for the default topology")
	f.StringVar(&upRun.CustomAMI, "custom-ami", "", "AMI id overriding resolution")
	f.StringVar(&upRun.CustomCookbookURL, "custom-cookbook-url", "", "Bootstrap cookbook URL override")

	f.StringVar(&upRun.VPCStackName, "vpc-stack", "", "Use this pre-existing VPC stack instead of creating one")
	f.StringVar(&upRun.DatabaseStackName, "database-stack", "", "Use this pre-existing database stack instead of creating one")
	f.StringVar(&upRun.SlurmDbdStackName, "slurmdbd-stack", "", "Use this pre-existing slurmdbd stack instead of creating one")
	f.StringVar(&upRun.MungeKeySecretARN, "munge-key-secret-arn", "", "Use this pre-existing munge key secret instead of generating one")

	f.StringVar(&upRun.VPCID, "vpc-id", "", "VPC id, required when borrowing the VPC stack")
	f.StringVar(&upRun.PublicSubnetID, "public-subnet-id", "", "Public subnet id, required when borrowing the VPC stack")
	f.StringVar(&upRun.DatabaseClientSecurityGroup, "database-client-security-group", "", "Client security group, required when borrowing the database stack")
	f.StringVar(&upRun.DatabaseHost, "database-host", "", "Database endpoint, required when borrowing the database stack")
	f.StringVar(&upRun.DatabaseSecretARN, "database-secret-arn", "", "Password secret ARN, required when borrowing the database stack")
	f.StringVar(&upRun.DatabaseAdminUser, "database-admin-user", "", "Admin user name, required when borrowing the database stack")

	f.BoolVar(&upRun.NoDelete, "keep", false, "Preserve everything created by this run")

	f.StringVar(&upRun.DatabaseTemplatePath, "database-template", "cloudformation/database/serverless-database.yaml", "Database stack template path")
	f.StringVar(&upRun.SlurmDbdTemplatePath, "slurmdbd-template", "cloudformation/external-slurmdbd/external-slurmdbd.json", "Slurmdbd stack template path")
	f.StringVar(&upRun.TopologyPath, "topology", "", "Topology YAML file (default topology when empty)")

	_ = upCmd.MarkFlagRequired("region")
}

func runUp(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	upRun.Normalize()

	loader := awsconfig.NewLoader(upRun.Credential)
	factory := stack.NewFactory(stack.AWSClients(loader))
	store := secrets.NewProvisioner(secrets.AWSClients(loader), "stackbench-munge-key")

	fc := &fixture.Context{
		Run:      &upRun,
		Stacks:   factory,
		Secrets:  store,
		Images:   ami.NewSSMResolver(ami.AWSClients(loader)),
		Subnets:  fixture.NewAWSSubnetReader(loader),
		Teardown: fixture.NewController(factory, store, upRun.NoDelete),
	}

	defer func() {
		for _, r := range fc.Teardown.Release(ctx) {
			switch {
			case r.Skipped:
				fmt.Printf("kept     %s (%s)\n", r.Name, r.Region)
			case r.Err != nil:
				fmt.Printf("failed   %s (%s): %v\n", r.Name, r.Region, r.Err)
			default:
				fmt.Printf("deleted  %s (%s)\n", r.Name, r.Region)
			}
		}
	}()

	chain, err := fixture.Provision(ctx, fc)
	if err != nil {
		return fmt.Errorf("provisioning failed: %w", err)
	}

	printLayer("network", chain.Network)
	printLayer("database", chain.Database)
	printLayer("slurmdbd", chain.SlurmDbd)
	fmt.Printf("munge key secret: %s\n", chain.MungeKey.ARN)

	return nil
}

func printLayer(label string, l fixture.Layer) {
	if l.Borrowed() {
		fmt.Printf("%s: %s (borrowed)\n", label, l.Name())
		return
	}
	fmt.Printf("%s: %s\n", label, l.Name())
	outputs := l.Outputs()
	keys := make([]string, 0, len(outputs))
	for k := range outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s = %s\n", k, outputs[k])
	}
}
