// Package saga runs a workflow as an ordered list of independently durable steps. There is no
// rollback: when a step fails the remaining steps are not run and the report records which artifacts
// already exist, so the workflow can be resumed or repaired by hand.
package saga

import (
	"context"

	"classmaster/internal/qerrors"

	"github.com/golang/glog"
)

type Status string

const (
	// StatusDone means the step wrote its artifact during this run.
	StatusDone Status = "done"
	// StatusSkipped means the artifact already existed, typically from an earlier partial run.
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
	StatusNotRun  Status = "not-run"
)

// Outcome is what a step reports on success.
type Outcome struct {
	Status     Status
	ArtifactID string
	Detail     interface{}
}

// Step is a single write. BestEffort steps may fail without failing the workflow.
type Step struct {
	Name       string
	BestEffort bool
	Run        func(ctx context.Context) (Outcome, error)
}

type StepReport struct {
	Name       string      `json:"name"`
	Status     Status      `json:"status"`
	ArtifactID string      `json:"artifactId,omitempty"`
	Detail     interface{} `json:"detail,omitempty"`
	Error      string      `json:"error,omitempty"`
}

type Report struct {
	Workflow string       `json:"workflow"`
	Steps    []StepReport `json:"steps"`
}

// Committed returns the steps whose artifacts exist in the store.
func (r Report) Committed() []StepReport {
	var out []StepReport
	for _, s := range r.Steps {
		if s.Status == StatusDone || s.Status == StatusSkipped {
			out = append(out, s)
		}
	}
	return out
}

// Failed returns the first failed step, if any.
func (r Report) Failed() (StepReport, bool) {
	for _, s := range r.Steps {
		if s.Status == StatusFailed {
			return s, true
		}
	}
	return StepReport{}, false
}

func (r Report) Step(name string) (StepReport, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepReport{}, false
}

// Run executes steps in order. A failing step stops the run unless it is best-effort. If nothing was
// committed before the failure the step's error is returned as is; otherwise it is wrapped in a
// qerrors.PartialWorkflowError carrying the report.
func Run(ctx context.Context, workflow string, steps []Step) (Report, error) {
	report := Report{Workflow: workflow, Steps: make([]StepReport, 0, len(steps))}

	for i, step := range steps {
		outcome, err := step.Run(ctx)
		if err != nil {
			report.Steps = append(report.Steps, StepReport{Name: step.Name, Status: StatusFailed, Error: err.Error()})
			glog.Warningf("%s: step %q failed after %d committed step(s): %v\n", workflow, step.Name, len(report.Committed()), err)
			if step.BestEffort {
				continue
			}

			for _, rest := range steps[i+1:] {
				report.Steps = append(report.Steps, StepReport{Name: rest.Name, Status: StatusNotRun})
			}
			if len(report.Committed()) == 0 {
				return report, err
			}
			return report, &qerrors.PartialWorkflowError{Workflow: workflow, Step: step.Name, Err: err, Report: report}
		}

		if outcome.Status == "" {
			outcome.Status = StatusDone
		}
		report.Steps = append(report.Steps, StepReport{
			Name:       step.Name,
			Status:     outcome.Status,
			ArtifactID: outcome.ArtifactID,
			Detail:     outcome.Detail,
		})
	}

	return report, nil
}
