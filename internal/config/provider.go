// SPDX-License-Identifier: MPL-2.0

package config

import "context"

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// ConfigDirPath overrides the config directory lookup when set.
	ConfigDirPath string
}

// Provider loads configuration from explicit options.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Config, error)
}

// Loaded is a configuration together with the file it was read from.
type Loaded struct {
	Config *Config
	// Path is empty when only defaults and the environment applied.
	Path string
}

type fileProvider struct{}

// NewProvider creates a configuration provider.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads configuration from the requested source.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, _, err := loadWithOptions(ctx, opts)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithSource loads like Provider.Load and also reports the source file,
// for `spvm config path`.
func LoadWithSource(ctx context.Context, opts LoadOptions) (*Loaded, error) {
	cfg, path, err := loadWithOptions(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Loaded{Config: cfg, Path: path}, nil
}

// StaticProvider returns cfg on every Load. Used by tests and embedding callers.
type StaticProvider struct {
	Config *Config
}

// Load implements Provider.
func (p StaticProvider) Load(context.Context, LoadOptions) (*Config, error) {
	if p.Config == nil {
		return DefaultConfig(), nil
	}
	return p.Config, nil
}
