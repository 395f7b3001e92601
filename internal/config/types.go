// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	// ContainerEngineAuto tries Docker first, then Podman.
	ContainerEngineAuto ContainerEngine = "auto"
	// ContainerEngineDocker uses Docker.
	ContainerEngineDocker ContainerEngine = "docker"
	// ContainerEnginePodman uses Podman.
	ContainerEnginePodman ContainerEngine = "podman"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultIndexURL is the public Python package index.
	DefaultIndexURL = "https://pypi.org"
	// DefaultTestUploadURL receives uploads in mock mode.
	DefaultTestUploadURL = "https://test.pypi.org/legacy/"
)

var (
	// ErrInvalidContainerEngine is returned when a ContainerEngine value is not recognized.
	ErrInvalidContainerEngine = errors.New("invalid container engine")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ContainerEngine selects the image builder.
	ContainerEngine string

	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidContainerEngineError wraps ErrInvalidContainerEngine.
	InvalidContainerEngineError struct {
		Value ContainerEngine
	}

	// InvalidColorSchemeError wraps ErrInvalidColorScheme.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidConfigError collects every field error of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Release holds the switches of a release run. It is passed by value to
	// every component that needs it; nothing reads it from global state.
	Release struct {
		// Mock avoids irreversible effects: git is not published, PyPI
		// uploads go to the test index and images are built but not pushed.
		Mock bool `json:"mock" yaml:"mock" mapstructure:"mock"`
		// Signed requires detached signatures to verify on dependency install.
		Signed bool `json:"signed" yaml:"signed" mapstructure:"signed"`
		// Repair runs autopep8 before the conformance check.
		Repair bool `json:"repair" yaml:"repair" mapstructure:"repair"`
		// Check makes conformance problems fatal.
		Check bool `json:"check" yaml:"check" mapstructure:"check"`
		// Update upgrades the declared dependencies first.
		Update bool `json:"update" yaml:"update" mapstructure:"update"`
		// Test runs the test suite.
		Test bool `json:"test" yaml:"test" mapstructure:"test"`
		// Ask asks for confirmation before executing the pipeline.
		Ask bool `json:"ask" yaml:"ask" mapstructure:"ask"`
	}

	// PythonConfig selects the interpreter that runs pip and the Python tools.
	PythonConfig struct {
		Interpreter string `json:"interpreter" yaml:"interpreter" mapstructure:"interpreter"`
	}

	// IndexConfig configures the package index.
	IndexConfig struct {
		URL           string        `json:"url" yaml:"url" mapstructure:"url"`
		TestUploadURL string        `json:"test_upload_url" yaml:"test_upload_url" mapstructure:"test_upload_url"`
		Timeout       time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
		Retries       int           `json:"retries" yaml:"retries" mapstructure:"retries"`
	}

	// SigningConfig configures gpg signature verification.
	SigningConfig struct {
		Keyring string        `json:"keyring" yaml:"keyring" mapstructure:"keyring"`
		Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	}

	// ContainerConfig configures image publishing.
	ContainerConfig struct {
		Engine ContainerEngine `json:"engine" yaml:"engine" mapstructure:"engine"`
	}

	// UIConfig configures output.
	UIConfig struct {
		Verbose     bool        `json:"verbose" yaml:"verbose" mapstructure:"verbose"`
		ColorScheme ColorScheme `json:"color_scheme" yaml:"color_scheme" mapstructure:"color_scheme"`
	}

	// UpdateCheckConfig configures the background freshness check.
	UpdateCheckConfig struct {
		Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	}

	// Config is the complete spvm configuration.
	Config struct {
		Release     Release           `json:"release" yaml:"release" mapstructure:"release"`
		Python      PythonConfig      `json:"python" yaml:"python" mapstructure:"python"`
		Index       IndexConfig       `json:"index" yaml:"index" mapstructure:"index"`
		Signing     SigningConfig     `json:"signing" yaml:"signing" mapstructure:"signing"`
		Container   ContainerConfig   `json:"container" yaml:"container" mapstructure:"container"`
		UI          UIConfig          `json:"ui" yaml:"ui" mapstructure:"ui"`
		UpdateCheck UpdateCheckConfig `json:"update_check" yaml:"update_check" mapstructure:"update_check"`
	}
)

// DefaultRelease returns the release switches used when nothing is configured.
func DefaultRelease() Release {
	return Release{Check: true, Test: true, Ask: true}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Release: DefaultRelease(),
		Python:  PythonConfig{Interpreter: "python3"},
		Index: IndexConfig{
			URL:           DefaultIndexURL,
			TestUploadURL: DefaultTestUploadURL,
			Timeout:       30 * time.Second,
			Retries:       3,
		},
		Signing: SigningConfig{
			Keyring: "spvm-verify.gpg",
			Timeout: 30 * time.Second,
		},
		Container:   ContainerConfig{Engine: ContainerEngineAuto},
		UI:          UIConfig{ColorScheme: ColorSchemeAuto},
		UpdateCheck: UpdateCheckConfig{Enabled: true},
	}
}

func (ce ContainerEngine) String() string { return string(ce) }

// IsValid returns whether the ContainerEngine is a known engine.
func (ce ContainerEngine) IsValid() (bool, []error) {
	switch ce {
	case ContainerEngineAuto, ContainerEngineDocker, ContainerEnginePodman:
		return true, nil
	default:
		return false, []error{&InvalidContainerEngineError{Value: ce}}
	}
}

func (e *InvalidContainerEngineError) Error() string {
	return fmt.Sprintf("invalid container engine %q (valid: auto, docker, podman)", e.Value)
}

func (e *InvalidContainerEngineError) Unwrap() error { return ErrInvalidContainerEngine }

func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is a known scheme.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// IsValid checks the fields CUE validation cannot reach once environment
// overrides are merged in.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if ok, fieldErrs := c.Container.Engine.IsValid(); !ok {
		errs = append(errs, fieldErrs...)
	}
	if ok, fieldErrs := c.UI.ColorScheme.IsValid(); !ok {
		errs = append(errs, fieldErrs...)
	}
	if c.Python.Interpreter == "" {
		errs = append(errs, errors.New("python.interpreter must not be empty"))
	}
	if c.Index.Retries < 0 {
		errs = append(errs, fmt.Errorf("index.retries must be >= 0, got %d", c.Index.Retries))
	}
	if c.Index.Timeout < 0 || c.Signing.Timeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s): %v", len(e.FieldErrors), errors.Join(e.FieldErrors...))
}

// Unwrap exposes ErrInvalidConfig and every field error to errors.Is/As.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
