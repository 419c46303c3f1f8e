// Package awsconfig loads region-bound AWS SDK configurations, caching one
// per region so every service client in a run shares the same credentials.
package awsconfig

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// Loader resolves aws.Config values per region, optionally from a named
// shared-config profile.
type Loader struct {
	profile string
	cache   map[string]aws.Config
}

// NewLoader returns a Loader. profile may be empty to use the default
// credential chain.
func NewLoader(profile string) *Loader {
	return &Loader{
		profile: profile,
		cache:   make(map[string]aws.Config),
	}
}

// Load returns the configuration for a region, loading it on first use.
func (l *Loader) Load(ctx context.Context, region string) (aws.Config, error) {
	if cfg, ok := l.cache[region]; ok {
		return cfg, nil
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if l.profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(l.profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load AWS config for %s: %w", region, err)
	}

	l.cache[region] = cfg
	return cfg, nil
}
