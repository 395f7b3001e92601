// SPDX-License-Identifier: MPL-2.0

package project

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	setupFile   = "setup.py"
	setupBackup = "setup.py.backup"
)

//go:embed templates/setup.py
var setupTemplate []byte

// SetupTemplate returns the setup.py spvm installs.
func SetupTemplate() []byte {
	return bytes.Clone(setupTemplate)
}

// InstallSetup writes the setup.py template at the project root.
// A setup.py that differs from the template is kept unless force is set, in
// which case it is first copied to setup.py.backup. Reports whether the file
// was written.
func (p *Project) InstallSetup(force bool) (bool, error) {
	path := filepath.Join(p.root, setupFile)

	existing, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return false, fmt.Errorf("failed to read %s: %w", setupFile, err)
	case bytes.Equal(existing, setupTemplate):
		p.logger.Debug("setup.py is up to date")
		return false, nil
	case !force:
		p.logger.Warn("setup.py already present, it will not be replaced; run spvm install to force")
		return false, nil
	default:
		backup := filepath.Join(p.root, setupBackup)
		if err := writeFileAtomic(backup, existing, 0o644); err != nil {
			return false, err
		}
		p.logger.Info("saved previous setup.py", "backup", setupBackup)
	}

	if err := writeFileAtomic(path, setupTemplate, 0o644); err != nil {
		return false, err
	}
	p.logger.Info("installed setup.py from template")
	return true, nil
}
