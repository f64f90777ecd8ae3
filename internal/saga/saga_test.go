package saga

import (
	"context"
	"errors"
	"testing"

	"classmaster/internal/qerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func step(name string, status Status, err error, calls *[]string) Step {
	return Step{
		Name: name,
		Run: func(ctx context.Context) (Outcome, error) {
			*calls = append(*calls, name)
			if err != nil {
				return Outcome{}, err
			}
			return Outcome{Status: status, ArtifactID: name + "-id"}, nil
		},
	}
}

func TestRunAllSteps(t *testing.T) {
	var calls []string
	report, err := Run(context.Background(), "test", []Step{
		step("first", "", nil, &calls),
		step("second", StatusSkipped, nil, &calls),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)
	assert.Len(t, report.Committed(), 2)
	assert.Equal(t, StatusDone, report.Steps[0].Status)
	assert.Equal(t, StatusSkipped, report.Steps[1].Status)
	_, failed := report.Failed()
	assert.False(t, failed)
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	boom := errors.New("store unavailable")
	var calls []string
	report, err := Run(context.Background(), "test", []Step{
		step("first", "", nil, &calls),
		step("second", "", boom, &calls),
		step("third", "", nil, &calls),
	})

	var partial *qerrors.PartialWorkflowError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, "second", partial.Step)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first", "second"}, calls)

	third, ok := report.Step("third")
	require.True(t, ok)
	assert.Equal(t, StatusNotRun, third.Status)

	failed, ok := report.Failed()
	require.True(t, ok)
	assert.Equal(t, "second", failed.Name)
	assert.Equal(t, boom.Error(), failed.Error)
}

func TestRunFailureBeforeAnyCommitIsNotPartial(t *testing.T) {
	boom := errors.New("store unavailable")
	var calls []string
	_, err := Run(context.Background(), "test", []Step{
		step("first", "", boom, &calls),
		step("second", "", nil, &calls),
	})

	var partial *qerrors.PartialWorkflowError
	assert.False(t, errors.As(err, &partial))
	assert.Equal(t, boom, err)
}

func TestRunBestEffortStepDoesNotFailWorkflow(t *testing.T) {
	var calls []string
	optional := step("counter", "", errors.New("increment failed"), &calls)
	optional.BestEffort = true

	report, err := Run(context.Background(), "test", []Step{
		step("insert", "", nil, &calls),
		optional,
	})

	require.NoError(t, err)
	counter, ok := report.Step("counter")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, counter.Status)
	assert.Len(t, report.Committed(), 1)
}
