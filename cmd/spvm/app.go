// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/WIN32GG/spvm/internal/config"
	"github.com/WIN32GG/spvm/internal/container"
	"github.com/WIN32GG/spvm/internal/issue"
	"github.com/WIN32GG/spvm/internal/pipeline"
	"github.com/WIN32GG/spvm/internal/project"
	"github.com/WIN32GG/spvm/internal/publish"
	"github.com/WIN32GG/spvm/internal/pypi"
	"github.com/WIN32GG/spvm/internal/quality"
	"github.com/WIN32GG/spvm/internal/runner"
	"github.com/WIN32GG/spvm/internal/selfupdate"
	"github.com/WIN32GG/spvm/internal/tui"
	"github.com/WIN32GG/spvm/internal/verify"
)

const indexBackoff = 500 * time.Millisecond

type (
	// App wires CLI services and shared dependencies. It is the composition root for
	// the CLI layer: every Cobra handler receives an App reference and reaches the
	// project, the toolchain and the publishers through it.
	App struct {
		Config   config.Provider
		Runner   runner.Runner
		Index    PackageIndex
		Engine   publish.EngineFunc
		Prompter pipeline.Confirmer
		stdout   io.Writer
		stderr   io.Writer

		flags   rootFlags
		once    sync.Once
		env     *session
		envErr  error
		updates <-chan *selfupdate.Result
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults, built from the loaded configuration.
	Dependencies struct {
		Config   config.Provider
		Runner   runner.Runner
		Index    PackageIndex
		Engine   publish.EngineFunc
		Prompter pipeline.Confirmer
		Stdout   io.Writer
		Stderr   io.Writer
	}

	// PackageIndex is the package index surface used by dependency
	// verification and the freshness check.
	PackageIndex interface {
		verify.Index
		selfupdate.Index
	}

	// rootFlags are the persistent flags shared by every command.
	rootFlags struct {
		verbose    bool
		configPath string
		projectDir string
	}

	// session is the configuration-dependent state of one invocation.
	session struct {
		cfg      *config.Config
		logger   *log.Logger
		runner   runner.Runner
		index    PackageIndex
		engine   publish.EngineFunc
		prompter pipeline.Confirmer
		verbose  bool
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}

	return &App{
		Config:   deps.Config,
		Runner:   deps.Runner,
		Index:    deps.Index,
		Engine:   deps.Engine,
		Prompter: deps.Prompter,
		stdout:   deps.Stdout,
		stderr:   deps.Stderr,
	}
}

// session loads the configuration once per invocation and builds the
// components that depend on it.
func (a *App) session(ctx context.Context) (*session, error) {
	a.once.Do(func() {
		a.env, a.envErr = a.newSession(ctx)
	})
	return a.env, a.envErr
}

func (a *App) newSession(ctx context.Context) (*session, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.flags.configPath})
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, verbose: a.flags.verbose || cfg.UI.Verbose}
	s.logger = log.NewWithOptions(a.stderr, log.Options{Prefix: config.AppName})
	if s.verbose {
		s.logger.SetLevel(log.DebugLevel)
	}

	s.runner = a.Runner
	if s.runner == nil {
		s.runner = runner.NewExecRunner(runner.WithLogger(s.logger))
	}

	s.index = a.Index
	if s.index == nil {
		s.index = pypi.NewClient(
			pypi.WithBaseURL(cfg.Index.URL),
			pypi.WithHTTPClient(&http.Client{Timeout: cfg.Index.Timeout}),
			pypi.WithRetries(cfg.Index.Retries, indexBackoff),
			pypi.WithUserAgent(config.AppName+"/"+Version),
			pypi.WithLogger(s.logger),
		)
	}

	s.engine = a.Engine
	if s.engine == nil {
		preferred := container.EngineType(cfg.Container.Engine)
		s.engine = func(ctx context.Context) (container.Engine, error) {
			return container.NewEngine(ctx, preferred)
		}
	}

	s.prompter = a.Prompter
	if s.prompter == nil {
		tc := tui.DefaultConfig()
		tc.Output = a.stderr
		s.prompter = tui.Prompter{Config: tc}
	}
	return s, nil
}

// startUpdateCheck launches the detached freshness check. It never blocks
// and its failures never reach the user.
func (a *App) startUpdateCheck(ctx context.Context) {
	s, err := a.session(ctx)
	if err != nil || !s.cfg.UpdateCheck.Enabled {
		return
	}
	checker := selfupdate.NewChecker(s.index, Version, selfupdate.WithLogger(s.logger))
	a.updates = checker.CheckAsync(ctx)
}

// reportUpdate prints the freshness notice when the check already finished.
func (a *App) reportUpdate() {
	if res := selfupdate.Pending(a.updates); res != nil {
		fmt.Fprintln(a.stderr, WarningStyle.Render(res.Message()))
	}
}

// projectRoot resolves the project directory from the positional argument,
// then --project, then the working directory.
func (a *App) projectRoot(args []string) (string, error) {
	dir := a.flags.projectDir
	if len(args) > 0 && args[0] != "" {
		dir = args[0]
	}
	if dir == "" {
		dir = "."
	}
	return filepath.Abs(dir)
}

// openProject loads the project at root.
func (s *session) openProject(root string) (*project.Project, error) {
	proj, err := project.Open(root, project.WithLogger(s.logger))
	if errors.Is(err, project.ErrNotInitialized) {
		return nil, issue.NewErrorContext().
			WithOperation("open project").
			WithResource(root).
			WithSuggestion("Run 'spvm init' in the project directory").
			WithIssue(issue.ProjectNotInitializedId).
			Wrap(err).
			BuildError()
	}
	return proj, err
}

func (s *session) toolchain(proj *project.Project, out io.Writer) *quality.Toolchain {
	return quality.New(s.runner, proj.Root(),
		quality.WithPython(s.cfg.Python.Interpreter),
		quality.WithOutput(out),
		quality.WithLogger(s.logger),
	)
}

func (s *session) verifier() *verify.Verifier {
	opts := []verify.Option{
		verify.WithPython(s.cfg.Python.Interpreter),
		verify.WithKeyring(s.cfg.Signing.Keyring),
		verify.WithSignatureTimeout(s.cfg.Signing.Timeout),
		verify.WithLogger(s.logger),
	}
	if base := strings.TrimRight(s.cfg.Index.URL, "/"); base != strings.TrimRight(config.DefaultIndexURL, "/") {
		opts = append(opts, verify.WithPipIndexURL(base+"/simple"))
	}
	return verify.New(s.runner, s.index, opts...)
}

func (s *session) publisher(proj *project.Project, release config.Release, out io.Writer) *publish.Publisher {
	return publish.New(proj, release, s.runner,
		publish.WithBuilder(s.toolchain(proj, out)),
		publish.WithEngine(s.engine),
		publish.WithTestUploadURL(s.cfg.Index.TestUploadURL),
		publish.WithOutput(out),
		publish.WithLogger(s.logger),
	)
}

func (s *session) orchestrator(proj *project.Project, release config.Release, out io.Writer) *pipeline.Orchestrator {
	return pipeline.New(proj, release, pipeline.Collaborators{
		Quality:   s.toolchain(proj, out),
		Installer: s.verifier(),
		Publisher: s.publisher(proj, release, out),
		Confirmer: s.prompter,
	}, pipeline.WithOutput(out), pipeline.WithLogger(s.logger))
}
