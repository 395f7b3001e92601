// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/WIN32GG/spvm/internal/version"
)

const (
	StepClearBuild         = "clear-build"
	StepUpdateDependencies = "update-dependencies"
	StepRepair             = "repair"
	StepCheckConformance   = "check-conformance"
	StepRunTests           = "run-tests"
	StepBumpVersion        = "bump-version"
	StepPopulateInit       = "populate-init"
	StepInstallSetup       = "install-setup"
	StepPublish            = "publish"
)

// ErrDeclined is returned when the operator refuses to run the pipeline.
var ErrDeclined = errors.New("release declined")

type (
	// Request carries the arguments of one pipeline run.
	Request struct {
		// Directive says how bump-version changes the version.
		Directive version.Directive
	}

	// Action is the work of a step.
	Action func(ctx context.Context, req Request) error

	// Step is one named unit of the pipeline. Informational steps are shown
	// in the preview but never executed and carry no Action.
	Step struct {
		Name          string
		Informational bool
		Action        Action
	}

	// Pipeline is an ordered list of steps.
	Pipeline struct {
		Steps []Step
	}

	// StepError reports the step that halted the pipeline.
	StepError struct {
		Step string
		Err  error
	}
)

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Names returns the names of the executable steps, in order.
func (p Pipeline) Names() []string {
	names := make([]string, 0, len(p.Steps))
	for _, s := range p.Steps {
		if !s.Informational {
			names = append(names, s.Name)
		}
	}
	return names
}

// Has reports whether an executable step called name is present.
func (p Pipeline) Has(name string) bool {
	for _, s := range p.Steps {
		if !s.Informational && s.Name == name {
			return true
		}
	}
	return false
}
