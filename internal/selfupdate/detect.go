// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
)

const (
	homebrewMacARM   = "/opt/homebrew/"
	homebrewMacIntel = "/usr/local/Cellar/"
	homebrewLinux    = "/home/linuxbrew/.linuxbrew/"

	// modulePath confirms a go-install origin.
	modulePath = "github.com/WIN32GG/spvm"

	// InstallMethodUnknown covers pip installs and manual downloads.
	InstallMethodUnknown InstallMethod = 0
	// InstallMethodHomebrew is `brew install spvm`.
	InstallMethodHomebrew InstallMethod = 1
	// InstallMethodGoInstall is `go install github.com/WIN32GG/spvm@...`.
	InstallMethodGoInstall InstallMethod = 2
)

var (
	// installMethodHint is set via -ldflags at build time to override detection.
	//
	//nolint:gochecknoglobals // Build-time ldflags injection requires a package-level variable.
	installMethodHint string

	//nolint:gochecknoglobals // Test seam for debug.ReadBuildInfo.
	readBuildInfo = debug.ReadBuildInfo
)

// InstallMethod identifies how spvm was installed.
type InstallMethod int

func (m InstallMethod) String() string {
	switch m {
	case InstallMethodHomebrew:
		return "homebrew"
	case InstallMethodGoInstall:
		return "goinstall"
	case InstallMethodUnknown:
		return "unknown"
	}
	return "unknown"
}

// UpgradeCommand is the command the user should run to upgrade.
func (m InstallMethod) UpgradeCommand() string {
	switch m {
	case InstallMethodHomebrew:
		return "brew upgrade spvm"
	case InstallMethodGoInstall:
		return "go install " + modulePath + "@latest"
	case InstallMethodUnknown:
		return "pip install --upgrade spvm"
	}
	return "pip install --upgrade spvm"
}

// DetectInstallMethod determines how spvm was installed. Detection priority:
//  1. Build-time ldflags hint
//  2. Homebrew prefixes
//  3. GOPATH/bin confirmed by the module path in the build info
//  4. Unknown
func DetectInstallMethod(execPath string) InstallMethod {
	if installMethodHint != "" {
		return parseMethodHint(installMethodHint)
	}

	if strings.Contains(execPath, homebrewMacARM) ||
		strings.Contains(execPath, homebrewMacIntel) ||
		strings.Contains(execPath, homebrewLinux) {
		return InstallMethodHomebrew
	}

	// Both conditions are required: a binary copied into GOPATH/bin by hand
	// is not a go install.
	if isInGOPATHBin(execPath) && hasModulePath() {
		return InstallMethodGoInstall
	}

	return InstallMethodUnknown
}

func parseMethodHint(hint string) InstallMethod {
	switch strings.ToLower(hint) {
	case "homebrew":
		return InstallMethodHomebrew
	case "goinstall":
		return InstallMethodGoInstall
	default:
		return InstallMethodUnknown
	}
}

// isInGOPATHBin checks whether the given path is inside $GOPATH/bin,
// falling back to ~/go when GOPATH is unset.
func isInGOPATHBin(execPath string) bool {
	gopath := os.Getenv("GOPATH")
	if gopath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return false
		}
		gopath = filepath.Join(home, "go")
	}

	gopathBin := filepath.Clean(filepath.Join(gopath, "bin"))
	cleanExec := filepath.Clean(execPath)
	return strings.HasPrefix(cleanExec, gopathBin+string(filepath.Separator)) ||
		cleanExec == gopathBin
}

func hasModulePath() bool {
	info, ok := readBuildInfo()
	if !ok || info == nil {
		return false
	}
	return strings.Contains(info.Path, modulePath)
}
