// SPDX-License-Identifier: MPL-2.0

package verify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/WIN32GG/spvm/internal/pypi"
	"github.com/WIN32GG/spvm/internal/runner"
	"github.com/WIN32GG/spvm/internal/runner/runnertest"
	"github.com/WIN32GG/spvm/pkg/types"
)

type (
	// stagedFile is what the fake pip download drops into the staging dir.
	stagedFile struct {
		name    string
		content string
	}

	// fakeIndex serves canned releases keyed by "project==version".
	fakeIndex struct {
		releases map[string]*pypi.Release
		sigErr   error
		onQuery  func()
		queried  []string
	}
)

func (f *fakeIndex) Release(ctx context.Context, name, version string) (*pypi.Release, error) {
	f.queried = append(f.queried, name+"=="+version)
	if f.onQuery != nil {
		f.onQuery()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, ok := f.releases[name+"=="+version]
	if !ok {
		return nil, pypi.ErrReleaseNotFound
	}
	return r, nil
}

func (f *fakeIndex) FetchSignature(ctx context.Context, file pypi.File) ([]byte, error) {
	if f.sigErr != nil {
		return nil, f.sigErr
	}
	return []byte("sig-for-" + file.Filename), nil
}

func sha(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// published builds an index entry for a staged file with a correct digest.
func published(f stagedFile, signed bool) pypi.File {
	return pypi.File{
		Filename: f.name,
		URL:      "https://files.example/" + f.name,
		HasSig:   signed,
		Digests:  pypi.Digests{SHA256: sha(f.content)},
	}
}

// stagingFake returns a runner whose "pip download" writes files into the
// --dest directory. gpgCode is the exit status gpg reports.
func stagingFake(t *testing.T, files map[string][]stagedFile, gpgCode types.ExitCode) *runnertest.Fake {
	t.Helper()
	return &runnertest.Fake{Handler: func(inv runner.Invocation, stdin string) (*runner.Result, error) {
		switch {
		case inv.Name == "gpg":
			if !strings.HasPrefix(stdin, "sig-for-") {
				t.Errorf("gpg stdin = %q, want the detached signature", stdin)
			}
			return runnertest.Exit(inv, gpgCode, "gpg: BAD signature")
		case runnertest.HasArg(inv, "download"):
			dest := inv.Args[slices.Index(inv.Args, "--dest")+1]
			spec := inv.Args[len(inv.Args)-1]
			staged, ok := files[spec]
			if !ok {
				return runnertest.Exit(inv, 1, "No matching distribution found for "+spec)
			}
			for _, f := range staged {
				if err := os.WriteFile(filepath.Join(dest, f.name), []byte(f.content), 0o600); err != nil {
					t.Fatalf("staging %s: %v", f.name, err)
				}
			}
			return &runner.Result{}, nil
		default:
			return &runner.Result{}, nil
		}
	}}
}

func newVerifier(t *testing.T, fake *runnertest.Fake, idx Index) *Verifier {
	t.Helper()
	return New(fake, idx, WithStagingRoot(t.TempDir()))
}

// stageDirs returns the distinct --dest directories pip downloaded into.
func stageDirs(fake *runnertest.Fake) []string {
	var dirs []string
	for _, c := range fake.Calls() {
		if !runnertest.HasArg(c, "download") {
			continue
		}
		dest := c.Args[slices.Index(c.Args, "--dest")+1]
		if !slices.Contains(dirs, dest) {
			dirs = append(dirs, dest)
		}
	}
	return dirs
}

func installCalls(fake *runnertest.Fake) []runner.Invocation {
	var out []runner.Invocation
	for _, c := range fake.Calls() {
		if runnertest.HasArg(c, "install") {
			out = append(out, c)
		}
	}
	return out
}

func assertStageRemoved(t *testing.T, fake *runnertest.Fake) {
	t.Helper()
	dirs := stageDirs(fake)
	if len(dirs) == 0 {
		t.Fatal("pip download was never invoked")
	}
	for _, dir := range dirs {
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Errorf("staging dir %s still present after run (stat err = %v)", dir, err)
		}
	}
}

var (
	wheelA = stagedFile{"alpha-1.0.0-py3-none-any.whl", "alpha wheel"}
	sdistB = stagedFile{"beta-pkg-2.1.tar.gz", "beta sdist"}
	wheelC = stagedFile{"gamma-0.3-py3-none-any.whl", "gamma wheel"}
)

func twoPackageIndex(signedA, signedB bool) *fakeIndex {
	return &fakeIndex{releases: map[string]*pypi.Release{
		"alpha==1.0.0":  {Files: []pypi.File{published(wheelA, signedA)}},
		"beta-pkg==2.1": {Files: []pypi.File{published(sdistB, signedB)}},
	}}
}

func TestInstallVerified_AllSigned(t *testing.T) {
	t.Parallel()

	fake := stagingFake(t, map[string][]stagedFile{"alpha": {wheelA, sdistB}}, 0)
	v := newVerifier(t, fake, twoPackageIndex(true, true))

	report, err := v.InstallVerified(context.Background(), []string{"alpha"}, true)
	if err != nil {
		t.Fatalf("InstallVerified() error = %v", err)
	}
	if report.Unchecked != 0 {
		t.Errorf("Unchecked = %d, want 0", report.Unchecked)
	}
	if len(report.Verified) != 2 || len(report.Installed) != 2 {
		t.Errorf("report = %+v, want 2 verified and 2 installed", report)
	}

	installs := installCalls(fake)
	if len(installs) != 1 {
		t.Fatalf("got %d install calls, want 1", len(installs))
	}
	if !runnertest.HasArg(installs[0], "--no-index") {
		t.Errorf("install must not reach the network: %v", installs[0].Args)
	}

	gpgCalls := 0
	for _, c := range fake.Calls() {
		if c.Name == "gpg" {
			gpgCalls++
			if c.Timeout <= 0 {
				t.Error("gpg invocation has no timeout")
			}
		}
	}
	if gpgCalls != 2 {
		t.Errorf("gpg invoked %d times, want 2", gpgCalls)
	}
	assertStageRemoved(t, fake)
}

func TestInstallVerified_DigestMismatchAbortsBatch(t *testing.T) {
	t.Parallel()

	idx := twoPackageIndex(true, true)
	idx.releases["beta-pkg==2.1"].Files[0].Digests.SHA256 = sha("something else")
	idx.releases["gamma==0.3"] = &pypi.Release{Files: []pypi.File{published(wheelC, true)}}

	// Directory listing order is alphabetical: alpha, beta-pkg, gamma.
	fake := stagingFake(t, map[string][]stagedFile{"alpha": {wheelA, sdistB, wheelC}}, 0)
	v := newVerifier(t, fake, idx)

	_, err := v.InstallVerified(context.Background(), []string{"alpha"}, true)
	if !errors.Is(err, ErrIntegrity) || !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("InstallVerified() error = %v, want integrity/checksum error", err)
	}
	var sumErr *ChecksumError
	if !errors.As(err, &sumErr) || sumErr.Filename != sdistB.name {
		t.Errorf("ChecksumError = %+v", sumErr)
	}
	if n := len(installCalls(fake)); n != 0 {
		t.Errorf("installer invoked %d times after integrity failure", n)
	}
	if slices.Contains(idx.queried, "gamma==0.3") {
		t.Errorf("artifact after the mismatch was still checked: queried %v", idx.queried)
	}
	gpgCalls := 0
	for _, c := range fake.Calls() {
		if c.Name == "gpg" {
			gpgCalls++
		}
	}
	if gpgCalls != 1 {
		t.Errorf("gpg invoked %d times, want 1 (only the artifact before the mismatch)", gpgCalls)
	}
	assertStageRemoved(t, fake)
}

func TestInstallVerified_BadSignatureIsFatal(t *testing.T) {
	t.Parallel()

	fake := stagingFake(t, map[string][]stagedFile{"alpha": {wheelA}}, 1)
	v := newVerifier(t, fake, twoPackageIndex(true, true))

	_, err := v.InstallVerified(context.Background(), []string{"alpha"}, true)
	if !errors.Is(err, ErrIntegrity) || !errors.Is(err, ErrBadSignature) {
		t.Fatalf("InstallVerified() error = %v, want bad signature integrity error", err)
	}
	if n := len(installCalls(fake)); n != 0 {
		t.Errorf("installer invoked %d times after bad signature", n)
	}
	assertStageRemoved(t, fake)
}

func TestInstallVerified_SignatureToolFailureIsCounted(t *testing.T) {
	t.Parallel()

	fake := stagingFake(t, map[string][]stagedFile{"alpha": {wheelA}}, 2)
	v := newVerifier(t, fake, twoPackageIndex(true, true))

	report, err := v.InstallVerified(context.Background(), []string{"alpha"}, true)
	if err != nil {
		t.Fatalf("InstallVerified() error = %v", err)
	}
	if report.Unchecked != 1 {
		t.Errorf("Unchecked = %d, want 1", report.Unchecked)
	}
	if len(installCalls(fake)) != 1 {
		t.Error("batch with only soft anomalies was not installed")
	}
}

func TestInstallVerified_UnsignedWithoutSignatureRequirement(t *testing.T) {
	t.Parallel()

	fake := stagingFake(t, map[string][]stagedFile{"alpha": {wheelA, sdistB}}, 0)
	v := newVerifier(t, fake, twoPackageIndex(true, false))

	report, err := v.InstallVerified(context.Background(), []string{"alpha"}, false)
	if err != nil {
		t.Fatalf("InstallVerified() error = %v", err)
	}
	if report.Unchecked != 1 {
		t.Errorf("Unchecked = %d, want 1", report.Unchecked)
	}
	for _, c := range fake.Calls() {
		if c.Name == "gpg" {
			t.Error("gpg invoked although signatures were not required")
		}
	}
	if len(report.Installed) != 2 {
		t.Errorf("Installed = %v, want both files", report.Installed)
	}
}

func TestInstallVerified_DownloadFailureInstallsNothing(t *testing.T) {
	t.Parallel()

	fake := stagingFake(t, map[string][]stagedFile{"alpha": {wheelA}}, 0)
	v := newVerifier(t, fake, twoPackageIndex(true, true))

	_, err := v.InstallVerified(context.Background(), []string{"alpha", "missing"}, true)
	var dlErr *DownloadError
	if !errors.As(err, &dlErr) || dlErr.Specifier != "missing" {
		t.Fatalf("InstallVerified() error = %v, want DownloadError for missing", err)
	}
	if !errors.Is(err, ErrDownload) {
		t.Error("error does not wrap ErrDownload")
	}
	if n := len(installCalls(fake)); n != 0 {
		t.Errorf("installer invoked %d times after download failure", n)
	}
	assertStageRemoved(t, fake)
}

func TestInstallVerified_MalformedAndUnpublishedFilesAreCounted(t *testing.T) {
	t.Parallel()

	stray := stagedFile{"README", "not a package"}
	unknown := stagedFile{"gamma-0.1-py3-none-any.whl", "gamma"}
	fake := stagingFake(t, map[string][]stagedFile{"alpha": {wheelA, stray, unknown}}, 0)
	v := newVerifier(t, fake, twoPackageIndex(true, true))

	report, err := v.InstallVerified(context.Background(), []string{"alpha"}, true)
	if err != nil {
		t.Fatalf("InstallVerified() error = %v", err)
	}
	if report.Unchecked != 2 {
		t.Errorf("Unchecked = %d, want 2", report.Unchecked)
	}
	if slices.Contains(report.Installed, stray.name) {
		t.Error("non-package file handed to the installer")
	}
}

func TestInstallVerified_FileMissingFromReleaseIsSkipped(t *testing.T) {
	t.Parallel()

	// The release exists but only lists the sdist, not the staged wheel.
	sdistA := stagedFile{"alpha-1.0.0.tar.gz", "alpha sdist"}
	idx := &fakeIndex{releases: map[string]*pypi.Release{
		"alpha==1.0.0": {Files: []pypi.File{published(sdistA, true)}},
	}}
	fake := stagingFake(t, map[string][]stagedFile{"alpha": {wheelA}}, 0)
	v := newVerifier(t, fake, idx)

	report, err := v.InstallVerified(context.Background(), []string{"alpha"}, true)
	if err != nil {
		t.Fatalf("InstallVerified() error = %v", err)
	}
	if report.Unchecked != 0 {
		t.Errorf("Unchecked = %d, want 0", report.Unchecked)
	}
	if len(report.Verified) != 0 {
		t.Errorf("Verified = %v, want none", report.Verified)
	}
	if !slices.Equal(report.Installed, []string{wheelA.name}) {
		t.Errorf("Installed = %v, want [%s]", report.Installed, wheelA.name)
	}
	for _, c := range fake.Calls() {
		if c.Name == "gpg" {
			t.Error("gpg invoked for a file the index does not list")
		}
	}
}

func TestInstallVerified_FreshStagePerBatch(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	foreign := filepath.Join(root, "spvm-staging")
	if err := os.Mkdir(foreign, 0o500); err != nil {
		t.Fatal(err)
	}

	fake := stagingFake(t, map[string][]stagedFile{"alpha": {wheelA}}, 0)
	v := New(fake, twoPackageIndex(true, true), WithStagingRoot(root))

	for range 2 {
		if _, err := v.InstallVerified(context.Background(), []string{"alpha"}, true); err != nil {
			t.Fatalf("InstallVerified() error = %v", err)
		}
	}

	dirs := stageDirs(fake)
	if len(dirs) != 2 {
		t.Fatalf("staging dirs = %v, want one per batch", dirs)
	}
	for _, dir := range dirs {
		if filepath.Dir(dir) != root || dir == foreign {
			t.Errorf("staging dir %s is not a fresh directory under %s", dir, root)
		}
	}
	assertStageRemoved(t, fake)
	if _, err := os.Stat(foreign); err != nil {
		t.Errorf("pre-existing directory was touched: %v", err)
	}
}

func TestInstallVerified_CancellationClearsStage(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	idx := twoPackageIndex(true, true)
	idx.onQuery = cancel

	fake := stagingFake(t, map[string][]stagedFile{"alpha": {wheelA, sdistB}}, 0)
	v := newVerifier(t, fake, idx)

	_, err := v.InstallVerified(ctx, []string{"alpha"}, true)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("InstallVerified() error = %v, want context.Canceled", err)
	}
	if n := len(installCalls(fake)); n != 0 {
		t.Errorf("installer invoked %d times after cancellation", n)
	}
	assertStageRemoved(t, fake)
}

func TestInstallVerified_EmptyBatch(t *testing.T) {
	t.Parallel()

	fake := &runnertest.Fake{}
	v := newVerifier(t, fake, &fakeIndex{})

	report, err := v.InstallVerified(context.Background(), nil, true)
	if err != nil || report.Unchecked != 0 || len(fake.Calls()) != 0 {
		t.Fatalf("empty batch: report=%+v err=%v calls=%d", report, err, len(fake.Calls()))
	}
}
