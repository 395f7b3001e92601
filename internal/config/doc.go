// SPDX-License-Identifier: MPL-2.0

// Package config handles spvm configuration using Viper with CUE as the file format.
//
// Configuration is loaded from $XDG_CONFIG_HOME/spvm/config.cue (~/Library/Application
// Support/spvm/config.cue on macOS, %APPDATA%\spvm\config.cue on Windows), falling
// back to ./config.cue. Every key can be overridden from the environment with the
// SPVM_ prefix (SPVM_RELEASE_MOCK=true, SPVM_INDEX_URL=...), and command-line flags
// override both. Files are validated against the embedded config_schema.cue.
package config
