// Package network builds CloudFormation templates for the VPC topology
// used by the provisioning chain.
package network

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"unicode"
)

// ErrInvalidCIDR reports a malformed CIDR in a topology configuration. It
// is surfaced at build time, before any provider call is made.
var ErrInvalidCIDR = errors.New("invalid CIDR block")

// ErrInvalidTopology reports an inconsistent topology configuration, such
// as a NAT default route with no NAT gateway declared.
var ErrInvalidTopology = errors.New("invalid topology")

// GatewayKind selects the default route target of a subnet.
type GatewayKind string

const (
	GatewayInternet GatewayKind = "internet"
	GatewayNAT      GatewayKind = "nat"
	GatewayNone     GatewayKind = "none"
)

// SubnetConfig declares one subnet of the topology.
type SubnetConfig struct {
	Name                string      `yaml:"name"`
	CIDR                string      `yaml:"cidr"`
	MapPublicIPOnLaunch bool        `yaml:"mapPublicIpOnLaunch"`
	HasNATGateway       bool        `yaml:"natGateway"`
	AvailabilityZone    string      `yaml:"availabilityZone"`
	DefaultGateway      GatewayKind `yaml:"defaultGateway"`
}

// VPCConfig declares the VPC and its subnets. Subnet CIDRs must be
// disjoint and contained in the VPC ranges; the builder does not check
// this, the caller is responsible for a consistent configuration.
type VPCConfig struct {
	Name                 string         `yaml:"name"`
	CIDR                 string         `yaml:"cidr"`
	AdditionalCIDRBlocks []string       `yaml:"additionalCidrBlocks"`
	Subnets              []SubnetConfig `yaml:"subnets"`
}

// CIDR carve-up of the 192.168.0.0/16 test range shared by all runs.
// Database stacks take the last two custom blocks.
var (
	CIDRForPublicSubnets  = []string{"192.168.0.0/19", "192.168.32.0/19"}
	CIDRForPrivateSubnets = []string{"192.168.64.0/19", "192.168.96.0/20"}
	CIDRForCustomSubnets  = []string{"192.168.112.0/20", "192.168.128.0/20", "192.168.144.0/20"}
)

// SubnetName derives a subnet name from its visibility and the
// availability-zone id, e.g. SubnetName("Public", "euw1-az1") is
// "PublicEuw1Az1".
func SubnetName(visibility, azID string) string {
	return visibility + logicalID(azID)
}

// logicalID turns a free-form name into a CloudFormation logical id:
// alphanumeric runs, each capitalized.
func logicalID(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (c VPCConfig) validate() error {
	if _, err := netip.ParsePrefix(c.CIDR); err != nil {
		return fmt.Errorf("%w: vpc %q", ErrInvalidCIDR, c.CIDR)
	}
	for _, cidr := range c.AdditionalCIDRBlocks {
		if _, err := netip.ParsePrefix(cidr); err != nil {
			return fmt.Errorf("%w: additional block %q", ErrInvalidCIDR, cidr)
		}
	}
	needsNAT := false
	hasNAT := false
	for _, s := range c.Subnets {
		if s.Name == "" {
			return fmt.Errorf("%w: subnet with empty name", ErrInvalidTopology)
		}
		if _, err := netip.ParsePrefix(s.CIDR); err != nil {
			return fmt.Errorf("%w: subnet %s %q", ErrInvalidCIDR, s.Name, s.CIDR)
		}
		switch s.DefaultGateway {
		case GatewayInternet, GatewayNone:
		case GatewayNAT:
			needsNAT = true
		default:
			return fmt.Errorf("%w: subnet %s has unknown gateway kind %q", ErrInvalidTopology, s.Name, s.DefaultGateway)
		}
		if s.HasNATGateway {
			hasNAT = true
		}
	}
	if needsNAT && !hasNAT {
		return fmt.Errorf("%w: a subnet routes through a NAT gateway but none is declared", ErrInvalidTopology)
	}
	return nil
}
