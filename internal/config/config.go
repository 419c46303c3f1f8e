// Package config holds the run configuration surface of a provisioning
// run. The orchestrator reads it, never writes it.
package config

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Stack name prefixes. The suffix appended to them isolates concurrent
// runs sharing an account and region.
const (
	VPCStackPrefix      = "integ-tests-vpc-database"
	DatabaseStackPrefix = "integ-tests-slurm-db"
	SlurmDbdStackPrefix = "integ-tests-slurm-dbd"
)

// Run is one provisioning run's configuration.
type Run struct {
	Region           string
	Credential       string // shared-config profile, empty for the default chain
	StackSuffix      string
	KeyName          string
	OS               string
	AvailabilityZone string

	CustomAMI         string
	CustomCookbookURL string

	// Pre-existing resources substituted for a layer. A non-empty name
	// borrows the resource: that layer is neither created nor deleted.
	VPCStackName      string
	DatabaseStackName string
	SlurmDbdStackName string
	MungeKeySecretARN string

	// Explicit values standing in for the outputs of a borrowed layer.
	// Borrowed stacks' outputs are never read, so dependent layers need
	// these instead.
	VPCID                       string
	PublicSubnetID              string
	DatabaseClientSecurityGroup string
	DatabaseHost                string
	DatabaseSecretARN           string
	DatabaseAdminUser           string

	// NoDelete preserves every owned resource at teardown.
	NoDelete bool

	DatabaseTemplatePath string
	SlurmDbdTemplatePath string
	TopologyPath         string
}

// Normalize fills derived defaults. It generates a fresh stack suffix when
// none was supplied so concurrent runs never collide on stack names.
func (r *Run) Normalize() {
	if r.StackSuffix == "" {
		r.StackSuffix = strings.Split(uuid.NewString(), "-")[0]
	}
	if r.OS == "" {
		r.OS = "alinux2023"
	}
}

// StackName combines a semantic prefix with the run suffix.
func (r *Run) StackName(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, r.StackSuffix)
}
