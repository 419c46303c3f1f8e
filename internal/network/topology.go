package network

// DefaultTopology is the two-subnet topology backing database stacks: a
// public subnet hosting the NAT gateway and defaulting to the internet
// gateway, and a private subnet routed through the NAT gateway.
func DefaultTopology(azName, azID string) VPCConfig {
	return VPCConfig{
		Name:                 "stackbench-vpc",
		CIDR:                 "192.168.0.0/17",
		AdditionalCIDRBlocks: []string{"192.168.128.0/17"},
		Subnets: []SubnetConfig{
			{
				Name:                SubnetName("Public", azID),
				CIDR:                CIDRForPublicSubnets[0],
				MapPublicIPOnLaunch: true,
				HasNATGateway:       true,
				AvailabilityZone:    azName,
				DefaultGateway:      GatewayInternet,
			},
			{
				Name:             SubnetName("Private", azID),
				CIDR:             CIDRForPrivateSubnets[0],
				AvailabilityZone: azName,
				DefaultGateway:   GatewayNAT,
			},
		},
	}
}

// PublicSubnet returns the first subnet that maps public IPs on launch.
func (c VPCConfig) PublicSubnet() (SubnetConfig, bool) {
	for _, s := range c.Subnets {
		if s.MapPublicIPOnLaunch {
			return s, true
		}
	}
	return SubnetConfig{}, false
}

// SubnetOutputKey returns the template output key carrying the subnet id.
func SubnetOutputKey(s SubnetConfig) string {
	return logicalID(s.Name) + "SubnetId"
}
