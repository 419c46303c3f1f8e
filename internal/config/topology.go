package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stackbench-io/stackbench/internal/network"
)

// LoadTopology reads a topology configuration from a YAML file.
func LoadTopology(path string) (network.VPCConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return network.VPCConfig{}, fmt.Errorf("failed to read topology file: %w", err)
	}

	var vpc network.VPCConfig
	if err := yaml.Unmarshal(raw, &vpc); err != nil {
		return network.VPCConfig{}, fmt.Errorf("failed to parse topology file %s: %w", path, err)
	}
	return vpc, nil
}
