// SPDX-License-Identifier: MPL-2.0

package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

// InitFilePath returns <root>/<package>/__init__.py.
func (p *Project) InitFilePath() string {
	return filepath.Join(p.root, p.meta.PackageDir(), "__init__.py")
}

// PopulateInit writes the metadata dunders (__name__, __version__,
// __author__, __url__, __email__) into the package __init__.py, replacing
// existing assignments in place and appending missing ones.
func (p *Project) PopulateInit() error {
	path := p.InitFilePath()
	content, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	author := p.meta.PrimaryAuthor()
	out := string(content)
	for _, kv := range []struct{ key, value string }{
		{"__name__", p.meta.Info.Name},
		{"__version__", p.meta.VCS.Version},
		{"__author__", author.Name},
		{"__url__", p.meta.Info.URL},
		{"__email__", author.Email},
	} {
		out = setDunder(out, kv.key, kv.value)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create package directory: %w", err)
	}
	if err := writeFileAtomic(path, []byte(out), 0o644); err != nil {
		return err
	}
	p.logger.Debug("populated package init", "file", path)
	return nil
}

// setDunder replaces every line-leading `key = ...` assignment in src, or
// appends one when none exists.
func setDunder(src, key, value string) string {
	re := regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(key) + ` ?= ?.*$`)
	line := key + " = " + strconv.Quote(value)
	if re.MatchString(src) {
		return re.ReplaceAllLiteralString(src, line)
	}
	if src != "" && src[len(src)-1] != '\n' {
		src += "\n"
	}
	return src + line + "\n"
}
