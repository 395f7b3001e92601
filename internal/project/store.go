// SPDX-License-Identifier: MPL-2.0

package project

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/WIN32GG/spvm/pkg/cueutil"
)

//go:embed meta_schema.cue
var metaSchema []byte

var (
	// ErrMetaParse is returned when pyp.json cannot be decoded or validated.
	ErrMetaParse = errors.New("invalid project metadata")

	// ErrNotInitialized is returned when the project has no pyp.json.
	ErrNotInitialized = errors.New("project is not initialized")
)

type (
	// MetaParseError wraps a decode or validation failure of pyp.json.
	MetaParseError struct {
		Path string
		Err  error
	}

	// NotInitializedError reports a directory without pyp.json.
	NotInitializedError struct {
		Root string
	}
)

func (e *MetaParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap lets errors.Is match both ErrMetaParse and the underlying cause.
func (e *MetaParseError) Unwrap() []error { return []error{ErrMetaParse, e.Err} }

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("no %s in %s (run spvm init first)", MetaFileName, e.Root)
}

func (e *NotInitializedError) Unwrap() error { return ErrNotInitialized }

// DecodeMeta validates a pyp.json document and fills every missing field
// with its default. Comments and trailing commas are tolerated.
func DecodeMeta(data []byte, filename string) (*Meta, error) {
	meta, err := cueutil.Decode[Meta](metaSchema, jsonc.ToJSON(data), "#Meta",
		cueutil.WithFilename(filename))
	if err != nil {
		return nil, &MetaParseError{Path: filename, Err: err}
	}
	migrateLegacy(meta)
	normalize(meta)
	return meta, nil
}

// EncodeMeta renders meta the way it is stored on disk.
func EncodeMeta(meta *Meta) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(meta); err != nil {
		return nil, fmt.Errorf("failed to encode project metadata: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadMeta reads and decodes the document at path. The second return value
// reports whether the stored bytes differ from the normalized document.
func LoadMeta(path string) (*Meta, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, &NotInitializedError{Root: filepath.Dir(path)}
		}
		return nil, false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	meta, err := DecodeMeta(data, path)
	if err != nil {
		return nil, false, err
	}

	normalized, err := EncodeMeta(meta)
	if err != nil {
		return nil, false, err
	}
	return meta, !bytes.Equal(normalized, data), nil
}

// SaveMeta writes meta to path atomically.
func SaveMeta(path string, meta *Meta) error {
	data, err := EncodeMeta(meta)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data, 0o644)
}

// writeFileAtomic replaces path with data through a temp file in the same
// directory, so readers never observe a partially written file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup of temp file
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// migrateLegacy folds ignored_errors (a comma-separated string or a list)
// into ignored_conformance_codes.
func migrateLegacy(meta *Meta) {
	legacy := meta.VCS.LegacyIgnoredErrors
	meta.VCS.LegacyIgnoredErrors = nil

	var codes []string
	switch v := legacy.(type) {
	case string:
		codes = strings.Split(v, ",")
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				codes = append(codes, s)
			}
		}
	}

	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" || slices.Contains(meta.VCS.IgnoredConformanceCodes, code) {
			continue
		}
		meta.VCS.IgnoredConformanceCodes = append(meta.VCS.IgnoredConformanceCodes, code)
	}
}

// normalize replaces nil lists so they encode as [] rather than null.
func normalize(meta *Meta) {
	if meta.VCS.IgnoredConformanceCodes == nil {
		meta.VCS.IgnoredConformanceCodes = []string{}
	}
	if meta.Requirements.PythonPackages == nil {
		meta.Requirements.PythonPackages = []string{}
	}
	if meta.Authors == nil {
		meta.Authors = []Author{}
	}
}
