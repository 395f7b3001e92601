// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/WIN32GG/spvm/internal/config"
	"github.com/WIN32GG/spvm/internal/issue"
)

// newConfigCommand creates the `spvm config` command tree.
// Subcommands that read configuration use the App's Provider.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage spvm configuration",
		Long: `Manage spvm configuration.

Configuration is stored in:
  - Linux: ~/.config/spvm/config.cue
  - macOS: ~/Library/Application Support/spvm/config.cue
  - Windows: %APPDATA%\spvm\config.cue

A config.cue in the working directory is used when the global file is
missing. SPVM_* environment variables override both (for example
SPVM_RELEASE_MOCK=true).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := showConfig(cmd.Context(), app, cmd.OutOrStdout()); err != nil {
				return app.fail(cmd, err)
			}
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, created, err := config.CreateDefaultConfig()
			if err != nil {
				return app.fail(cmd, fmt.Errorf("failed to create config: %w", err))
			}
			if !created {
				fmt.Fprintf(cmd.OutOrStdout(), "%s Configuration already exists at %s\n", WarningStyle.Render("!"), path)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			dir, err := config.ConfigDir()
			if err != nil {
				return app.fail(cmd, err)
			}
			fmt.Fprintf(out, "Config directory: %s\n", dir)

			loaded, err := config.LoadWithSource(cmd.Context(), config.LoadOptions{ConfigFilePath: app.flags.configPath})
			switch {
			case err != nil:
				fmt.Fprintf(out, "Config file: %s\n", ErrorStyle.Render("(invalid)"))
			case loaded.Path == "":
				fmt.Fprintf(out, "Config file: %s\n", SubtitleStyle.Render("(using defaults)"))
			default:
				fmt.Fprintf(out, "Config file: %s\n", loaded.Path)
			}
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output raw configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config.Load(cmd.Context(), config.LoadOptions{ConfigFilePath: app.flags.configPath})
			if err != nil {
				return app.fail(cmd, err)
			}
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, w io.Writer) error {
	cfg, err := app.Config.Load(ctx, config.LoadOptions{ConfigFilePath: app.flags.configPath})
	if err != nil {
		if rendered, renderErr := issue.Get(issue.ConfigLoadFailedId).Render("dark"); renderErr == nil {
			fmt.Fprint(app.stderr, rendered)
		}
		return err
	}

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	section := func(name string, pairs ...string) {
		fmt.Fprintf(w, "%s:\n", keyStyle.Render(name))
		for i := 0; i+1 < len(pairs); i += 2 {
			fmt.Fprintf(w, "  %s: %s\n", pairs[i], SuccessStyle.Render(pairs[i+1]))
		}
		fmt.Fprintln(w)
	}
	b := strconv.FormatBool

	r := cfg.Release
	section("release",
		"mock", b(r.Mock), "signed", b(r.Signed), "repair", b(r.Repair), "check", b(r.Check),
		"update", b(r.Update), "test", b(r.Test), "ask", b(r.Ask))
	section("python", "interpreter", cfg.Python.Interpreter)
	section("index",
		"url", cfg.Index.URL, "test_upload_url", cfg.Index.TestUploadURL,
		"timeout", cfg.Index.Timeout.String(), "retries", strconv.Itoa(cfg.Index.Retries))
	section("signing", "keyring", cfg.Signing.Keyring, "timeout", cfg.Signing.Timeout.String())
	section("container", "engine", cfg.Container.Engine.String())
	section("ui", "verbose", b(cfg.UI.Verbose), "color_scheme", cfg.UI.ColorScheme.String())
	section("update_check", "enabled", b(cfg.UpdateCheck.Enabled))
	return nil
}
