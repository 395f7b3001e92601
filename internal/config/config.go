// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/WIN32GG/spvm/internal/issue"
	"github.com/WIN32GG/spvm/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "spvm"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "SPVM"
)

//go:embed config_schema.cue
var configSchema []byte

// ConfigDir returns the spvm configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// ConfigFilePath returns the default location of config.cue.
func ConfigFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

// loadWithOptions performs option-driven config loading. It returns the
// loaded config and the path of the file it came from ("" for defaults only).
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := newViper()

	resolvedPath, err := resolveConfigFile(opts)
	if err != nil {
		return nil, "", err
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Run 'spvm config dump' to see a valid configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if ok, errs := cfg.IsValid(); !ok {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithSuggestion("Check SPVM_* environment variables for typos").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errors.Join(errs...)).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// newViper returns a Viper instance carrying every default and the SPVM_
// environment binding. Keys must all have defaults for AutomaticEnv to see them.
func newViper() *viper.Viper {
	v := viper.New()

	d := DefaultConfig()
	v.SetDefault("release.mock", d.Release.Mock)
	v.SetDefault("release.signed", d.Release.Signed)
	v.SetDefault("release.repair", d.Release.Repair)
	v.SetDefault("release.check", d.Release.Check)
	v.SetDefault("release.update", d.Release.Update)
	v.SetDefault("release.test", d.Release.Test)
	v.SetDefault("release.ask", d.Release.Ask)
	v.SetDefault("python.interpreter", d.Python.Interpreter)
	v.SetDefault("index.url", d.Index.URL)
	v.SetDefault("index.test_upload_url", d.Index.TestUploadURL)
	v.SetDefault("index.timeout", d.Index.Timeout)
	v.SetDefault("index.retries", d.Index.Retries)
	v.SetDefault("signing.keyring", d.Signing.Keyring)
	v.SetDefault("signing.timeout", d.Signing.Timeout)
	v.SetDefault("container.engine", string(d.Container.Engine))
	v.SetDefault("ui.verbose", d.UI.Verbose)
	v.SetDefault("ui.color_scheme", string(d.UI.ColorScheme))
	v.SetDefault("update_check.enabled", d.UpdateCheck.Enabled)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// resolveConfigFile picks the file to load: an explicit path (which must
// exist), then the config directory, then ./config.cue. No file is not an error.
func resolveConfigFile(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Run 'spvm config init' to create a default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}

	for _, candidate := range []string{
		filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt),
		ConfigFileName + "." + ConfigFileExt,
	} {
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into
// Viper. Fields are optional, so validation is not concrete and the result is
// decoded to a map for Viper rather than to Config.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	unified, _, err := cueutil.Unify(configSchema, data, "#Config",
		cueutil.WithFilename(path),
		cueutil.WithConcrete(false))
	if err != nil {
		return err
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes a default config.cue unless one exists.
// It returns the path and whether a file was created.
func CreateDefaultConfig() (string, bool, error) {
	cfgPath, err := ConfigFilePath()
	if err != nil {
		return "", false, err
	}

	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, false, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}
	return cfgPath, true, nil
}

// GenerateCUE renders cfg as a config.cue document.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// spvm configuration file\n")
	sb.WriteString("// Every value can be overridden with SPVM_<SECTION>_<KEY> environment variables.\n\n")

	sb.WriteString("release: {\n")
	fmt.Fprintf(&sb, "\tmock:   %v\n", cfg.Release.Mock)
	fmt.Fprintf(&sb, "\tsigned: %v\n", cfg.Release.Signed)
	fmt.Fprintf(&sb, "\trepair: %v\n", cfg.Release.Repair)
	fmt.Fprintf(&sb, "\tcheck:  %v\n", cfg.Release.Check)
	fmt.Fprintf(&sb, "\tupdate: %v\n", cfg.Release.Update)
	fmt.Fprintf(&sb, "\ttest:   %v\n", cfg.Release.Test)
	fmt.Fprintf(&sb, "\task:    %v\n", cfg.Release.Ask)
	sb.WriteString("}\n")

	sb.WriteString("\npython: {\n")
	fmt.Fprintf(&sb, "\tinterpreter: %q\n", cfg.Python.Interpreter)
	sb.WriteString("}\n")

	sb.WriteString("\nindex: {\n")
	fmt.Fprintf(&sb, "\turl:             %q\n", cfg.Index.URL)
	fmt.Fprintf(&sb, "\ttest_upload_url: %q\n", cfg.Index.TestUploadURL)
	fmt.Fprintf(&sb, "\ttimeout:         %q\n", cfg.Index.Timeout.String())
	fmt.Fprintf(&sb, "\tretries:         %d\n", cfg.Index.Retries)
	sb.WriteString("}\n")

	sb.WriteString("\nsigning: {\n")
	fmt.Fprintf(&sb, "\tkeyring: %q\n", cfg.Signing.Keyring)
	fmt.Fprintf(&sb, "\ttimeout: %q\n", cfg.Signing.Timeout.String())
	sb.WriteString("}\n")

	sb.WriteString("\ncontainer: {\n")
	fmt.Fprintf(&sb, "\tengine: %q\n", cfg.Container.Engine)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose:      %v\n", cfg.UI.Verbose)
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	sb.WriteString("}\n")

	sb.WriteString("\nupdate_check: {\n")
	fmt.Fprintf(&sb, "\tenabled: %v\n", cfg.UpdateCheck.Enabled)
	sb.WriteString("}\n")

	return sb.String()
}
