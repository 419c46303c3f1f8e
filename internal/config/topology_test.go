package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackbench-io/stackbench/internal/network"
)

func TestLoadTopology(t *testing.T) {
	raw := `
name: test-vpc
cidr: 192.168.0.0/17
additionalCidrBlocks:
  - 192.168.128.0/17
subnets:
  - name: PublicAz1
    cidr: 192.168.0.0/19
    mapPublicIpOnLaunch: true
    natGateway: true
    availabilityZone: eu-west-1a
    defaultGateway: internet
  - name: PrivateAz1
    cidr: 192.168.64.0/19
    defaultGateway: nat
`
	path := filepath.Join(t.TempDir(), "topology.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	vpc, err := LoadTopology(path)
	require.NoError(t, err)

	assert.Equal(t, "test-vpc", vpc.Name)
	assert.Equal(t, "192.168.0.0/17", vpc.CIDR)
	assert.Equal(t, []string{"192.168.128.0/17"}, vpc.AdditionalCIDRBlocks)
	require.Len(t, vpc.Subnets, 2)

	public := vpc.Subnets[0]
	assert.Equal(t, "PublicAz1", public.Name)
	assert.True(t, public.MapPublicIPOnLaunch)
	assert.True(t, public.HasNATGateway)
	assert.Equal(t, network.GatewayInternet, public.DefaultGateway)

	private := vpc.Subnets[1]
	assert.False(t, private.MapPublicIPOnLaunch)
	assert.Equal(t, network.GatewayNAT, private.DefaultGateway)
}

func TestLoadTopology_MissingFile(t *testing.T) {
	_, err := LoadTopology(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadTopology_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topology.yaml")
	require.NoError(t, os.WriteFile(path, []byte("subnets: {not: [a, list"), 0o644))

	_, err := LoadTopology(path)
	assert.Error(t, err)
}
