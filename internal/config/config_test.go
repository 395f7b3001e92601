// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/WIN32GG/spvm/internal/issue"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Release != (Release{Check: true, Test: true, Ask: true}) {
		t.Errorf("Release defaults = %+v", cfg.Release)
	}
	if cfg.Index.URL != DefaultIndexURL || cfg.Index.Retries != 3 {
		t.Errorf("Index defaults = %+v", cfg.Index)
	}
	if cfg.Container.Engine != ContainerEngineAuto {
		t.Errorf("Container.Engine = %s", cfg.Container.Engine)
	}
	if ok, errs := cfg.IsValid(); !ok {
		t.Errorf("DefaultConfig().IsValid() = %v", errs)
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	t.Parallel()

	loaded, err := LoadWithSource(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Path != "" {
		t.Errorf("Path = %q, want empty", loaded.Path)
	}
	if loaded.Config.Release != DefaultRelease() {
		t.Errorf("Release = %+v", loaded.Config.Release)
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeConfig(t, dir, `
release: {
	mock: true
	check: false
}
index: {
	timeout: "1m30s"
	retries: 5
}
container: engine: "podman"
`)

	loaded, err := LoadWithSource(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg := loaded.Config
	if loaded.Path != path {
		t.Errorf("Path = %q, want %q", loaded.Path, path)
	}
	if !cfg.Release.Mock || cfg.Release.Check {
		t.Errorf("Release = %+v", cfg.Release)
	}
	if !cfg.Release.Test || !cfg.Release.Ask {
		t.Error("unset release switches lost their defaults")
	}
	if cfg.Index.Timeout != 90*time.Second || cfg.Index.Retries != 5 {
		t.Errorf("Index = %+v", cfg.Index)
	}
	if cfg.Container.Engine != ContainerEnginePodman {
		t.Errorf("Container.Engine = %s", cfg.Container.Engine)
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"unknown engine", `container: engine: "lxc"`},
		{"unknown section", `deploy: {}`},
		{"wrong type", `release: mock: "yes"`},
		{"bad url", `index: url: "ftp://mirror"`},
		{"too many retries", `index: retries: 50`},
		{"syntax", `release: {`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeConfig(t, dir, tt.content)

			_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
			if err == nil {
				t.Fatal("Load() accepted an invalid file")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) || ae.Issue != issue.ConfigLoadFailedId {
				t.Errorf("Load() error = %v, want an actionable config error", err)
			}
		})
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	t.Parallel()

	_, err := NewProvider().Load(context.Background(), LoadOptions{
		ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue"),
	})
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{ConfigDirPath: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `release: mock: false`)

	t.Setenv("SPVM_RELEASE_MOCK", "true")
	t.Setenv("SPVM_INDEX_URL", "https://mirror.example.com")
	t.Setenv("SPVM_SIGNING_TIMEOUT", "5s")

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Release.Mock {
		t.Error("SPVM_RELEASE_MOCK did not override the file")
	}
	if cfg.Index.URL != "https://mirror.example.com" {
		t.Errorf("Index.URL = %q", cfg.Index.URL)
	}
	if cfg.Signing.Timeout != 5*time.Second {
		t.Errorf("Signing.Timeout = %v", cfg.Signing.Timeout)
	}
}

func TestLoad_InvalidEnvironmentValue(t *testing.T) {
	t.Setenv("SPVM_CONTAINER_ENGINE", "lxc")

	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, ErrInvalidContainerEngine) {
		t.Fatalf("Load() error = %v, want ErrInvalidContainerEngine", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()

	want := DefaultConfig()
	want.Release.Mock = true
	want.Index.Timeout = 2 * time.Minute
	want.UI.ColorScheme = ColorSchemeDark

	dir := t.TempDir()
	writeConfig(t, dir, GenerateCUE(want))

	got, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load(GenerateCUE()) error = %v", err)
	}
	if *got != *want {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, want)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	path, created, err := CreateDefaultConfig()
	if err != nil || !created {
		t.Fatalf("CreateDefaultConfig() = %q, %v, %v", path, created, err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("path = %q, want inside %q", path, dir)
	}

	_, created, err = CreateDefaultConfig()
	if err != nil || created {
		t.Errorf("second CreateDefaultConfig() created = %v, err = %v", created, err)
	}
}

func TestConfigDir_XDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME applies to Linux")
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	got, err := ConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join("/tmp/xdg", AppName) {
		t.Errorf("ConfigDir() = %q", got)
	}
}

func TestStaticProvider(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Release.Mock = true
	got, err := StaticProvider{Config: cfg}.Load(context.Background(), LoadOptions{})
	if err != nil || got != cfg {
		t.Errorf("Load() = %v, %v", got, err)
	}
	if got, _ := (StaticProvider{}).Load(context.Background(), LoadOptions{}); got.Release != DefaultRelease() {
		t.Errorf("zero StaticProvider = %+v", got.Release)
	}
}
