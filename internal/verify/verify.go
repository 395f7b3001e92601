// SPDX-License-Identifier: MPL-2.0

package verify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/WIN32GG/spvm/internal/pypi"
	"github.com/WIN32GG/spvm/internal/runner"
)

const (
	// DefaultKeyring is the throwaway keyring gpg imports retrieved keys into.
	DefaultKeyring = "spvm-verify.gpg"

	defaultPython           = "python3"
	defaultSignatureTimeout = 30 * time.Second
	defaultDownloadTimeout  = 10 * time.Minute

	// gpgBadSignature is the gpg exit status for a signature that does not verify.
	gpgBadSignature = 1
)

type (
	// Index is the package index subset the verifier needs.
	Index interface {
		Release(ctx context.Context, name, version string) (*pypi.Release, error)
		FetchSignature(ctx context.Context, f pypi.File) ([]byte, error)
	}

	// Report summarises a successful batch.
	Report struct {
		// Installed lists the package files handed to the installer.
		Installed []string
		// Verified lists files whose digests (and signature, when required) passed.
		Verified []string
		// Unchecked counts files that could not be fully verified.
		Unchecked int
	}

	// Verifier downloads, verifies and installs packages.
	Verifier struct {
		runner           runner.Runner
		index            Index
		stagingRoot      string
		python           string
		keyring          string
		pipIndexURL      string
		signatureTimeout time.Duration
		downloadTimeout  time.Duration
		logger           *log.Logger
	}

	// Option configures a Verifier.
	Option func(*Verifier)

	// outcome is the per-artifact verdict that is not an integrity failure.
	outcome int
)

const (
	outcomeVerified outcome = iota
	outcomeUnchecked
	outcomeSkipped
)

// stagePattern names the per-batch directory created under the staging root.
const stagePattern = "spvm-staging-*"

// WithStagingRoot sets the parent directory of the per-batch staging
// directories. It defaults to os.TempDir().
func WithStagingRoot(dir string) Option {
	return func(v *Verifier) { v.stagingRoot = dir }
}

// WithPython sets the interpreter used to run pip.
func WithPython(python string) Option {
	return func(v *Verifier) { v.python = python }
}

// WithKeyring sets the gpg keyring used for signature checks.
func WithKeyring(keyring string) Option {
	return func(v *Verifier) { v.keyring = keyring }
}

// WithPipIndexURL makes pip download from a specific simple index.
func WithPipIndexURL(u string) Option {
	return func(v *Verifier) { v.pipIndexURL = u }
}

// WithSignatureTimeout bounds each gpg invocation.
func WithSignatureTimeout(d time.Duration) Option {
	return func(v *Verifier) { v.signatureTimeout = d }
}

// WithDownloadTimeout bounds each pip download invocation.
func WithDownloadTimeout(d time.Duration) Option {
	return func(v *Verifier) { v.downloadTimeout = d }
}

// WithLogger sets the logger for anomalies and progress.
func WithLogger(l *log.Logger) Option {
	return func(v *Verifier) { v.logger = l }
}

// New creates a Verifier.
func New(r runner.Runner, idx Index, opts ...Option) *Verifier {
	v := &Verifier{
		runner:           r,
		index:            idx,
		stagingRoot:      os.TempDir(),
		python:           defaultPython,
		keyring:          DefaultKeyring,
		signatureTimeout: defaultSignatureTimeout,
		downloadTimeout:  defaultDownloadTimeout,
		logger:           log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// InstallVerified downloads every specifier (with its dependencies), checks
// each staged artifact and installs the batch only when no integrity
// violation was found.
//
// With requireSignatures false, digests alone gate installation and no
// signature is fetched. Unsigned artifacts are counted as unchecked either way.
func (v *Verifier) InstallVerified(ctx context.Context, specifiers []string, requireSignatures bool) (*Report, error) {
	if len(specifiers) == 0 {
		return &Report{}, nil
	}

	stage, err := os.MkdirTemp(v.stagingRoot, stagePattern)
	if err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(stage); err != nil {
			v.logger.Warn("could not remove staging directory", "dir", stage, "err", err)
		}
	}()

	for _, spec := range specifiers {
		if err := v.download(ctx, stage, spec); err != nil {
			return nil, err
		}
	}

	entries, err := os.ReadDir(stage)
	if err != nil {
		return nil, fmt.Errorf("listing staging directory: %w", err)
	}

	report := &Report{}
	var packages []string
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("verification interrupted: %w", err)
		}
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		verdict, err := v.verifyArtifact(ctx, stage, name, requireSignatures)
		if err != nil {
			return nil, err
		}
		switch verdict {
		case outcomeVerified:
			report.Verified = append(report.Verified, name)
		case outcomeUnchecked:
			report.Unchecked++
		}

		if IsPackageFile(name) {
			packages = append(packages, name)
		}
	}

	if report.Unchecked > 0 {
		v.logger.Warn(fmt.Sprintf("%d artifact(s) could not be fully verified", report.Unchecked))
	}

	if err := v.install(ctx, stage, packages); err != nil {
		return nil, err
	}
	report.Installed = packages
	return report, nil
}

func (v *Verifier) download(ctx context.Context, stage, spec string) error {
	args := []string{"-m", "pip", "download", "--dest", stage}
	if v.pipIndexURL != "" {
		args = append(args, "--index-url", v.pipIndexURL)
	}
	args = append(args, spec)

	v.logger.Info("downloading", "package", spec)
	if _, err := v.runner.Run(ctx, runner.Invocation{
		Name:    v.python,
		Args:    args,
		Timeout: v.downloadTimeout,
	}); err != nil {
		return &DownloadError{Specifier: spec, Err: err}
	}
	return nil
}

// verifyArtifact runs the per-file checks. Only integrity violations and
// cancellation come back as errors.
func (v *Verifier) verifyArtifact(ctx context.Context, stage, name string, requireSignatures bool) (outcome, error) {
	art, err := ParseArtifact(name)
	if err != nil {
		v.logger.Warn("skipping unrecognised file", "file", name)
		return outcomeUnchecked, nil
	}

	release, err := v.index.Release(ctx, art.Project, art.Version)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, fmt.Errorf("verification interrupted: %w", ctxErr)
		}
		v.logger.Warn("failed to query index", "file", name, "err", err)
		return outcomeUnchecked, nil
	}

	file, ok := release.Lookup(name)
	if !ok {
		v.logger.Debug("no index entry for file, skipping", "file", name)
		return outcomeSkipped, nil
	}

	path := filepath.Join(stage, name)
	checked, err := checkDigests(path, name, file.Expected())
	if err != nil {
		var sumErr *ChecksumError
		if errors.As(err, &sumErr) {
			return 0, &IntegrityError{Filename: name, Err: err}
		}
		return 0, err
	}
	if !checked {
		v.logger.Warn("index publishes no digest", "file", name)
		return outcomeUnchecked, nil
	}

	if !file.HasSig {
		v.logger.Warn("package is not signed", "file", name)
		return outcomeUnchecked, nil
	}

	if !requireSignatures {
		v.logger.Debug("digest verified", "file", name)
		return outcomeVerified, nil
	}

	return v.checkSignature(ctx, path, name, file)
}

func (v *Verifier) checkSignature(ctx context.Context, path, name string, file pypi.File) (outcome, error) {
	sig, err := v.index.FetchSignature(ctx, file)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, fmt.Errorf("verification interrupted: %w", ctxErr)
		}
		v.logger.Warn("failed to fetch signature", "file", name, "err", err)
		return outcomeUnchecked, nil
	}

	_, err = v.runner.Run(ctx, runner.Invocation{
		Name: "gpg",
		Args: []string{
			"--batch", "--no-default-keyring",
			"--keyring", v.keyring,
			"--auto-key-retrieve",
			"--verify", "-", path,
		},
		Stdin:   bytes.NewReader(sig),
		Timeout: v.signatureTimeout,
	})
	if err == nil {
		v.logger.Info("signature verified", "file", name)
		return outcomeVerified, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, fmt.Errorf("verification interrupted: %w", ctxErr)
	}

	var statusErr *runner.ExitStatusError
	if errors.As(err, &statusErr) && statusErr.Code == gpgBadSignature {
		return 0, &IntegrityError{Filename: name, Err: &SignatureError{Filename: name, Detail: statusErr.Stderr}}
	}

	v.logger.Warn("signature could not be checked", "file", name, "err", err)
	return outcomeUnchecked, nil
}

func (v *Verifier) install(ctx context.Context, stage string, packages []string) error {
	if len(packages) == 0 {
		return nil
	}

	args := []string{"-m", "pip", "install", "--no-index", "--find-links", stage}
	for _, p := range packages {
		args = append(args, filepath.Join(stage, p))
	}

	if _, err := v.runner.Run(ctx, runner.Invocation{Name: v.python, Args: args}); err != nil {
		return fmt.Errorf("installing verified packages: %w", err)
	}
	return nil
}
