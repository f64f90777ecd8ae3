package repository

import (
	"context"
	"fmt"
	"testing"

	"classmaster/internal/docstore"
	"classmaster/internal/models"
	"classmaster/internal/qerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createAssignment(t *testing.T, r *Repository, owner, classID, title string) *models.Assignment {
	t.Helper()
	a, err := r.CreateAssignment(context.Background(), &models.CreateAssignmentRequest{
		OwnerEmail: owner,
		ClassID:    classID,
		Title:      title,
	})
	require.NoError(t, err)
	return a
}

func submit(t *testing.T, r *Repository, assignmentID, email string) *models.SubmitAssignmentResult {
	t.Helper()
	res, err := r.SubmitAssignment(context.Background(), &models.SubmitAssignmentRequest{
		AssignmentID:   assignmentID,
		StudentEmail:   email,
		SubmissionData: "https://example.com/solution",
	})
	require.NoError(t, err)
	return res
}

func TestCreateAssignmentRequiresClassOwner(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepository(t)
	class := createApprovedClass(t, r, "teacher@example.com", "Go basics")

	_, err := r.CreateAssignment(ctx, &models.CreateAssignmentRequest{OwnerEmail: "other@example.com", ClassID: class.ID, Title: "HW1"})
	assert.ErrorIs(t, err, qerrors.ForbiddenError)

	_, err = r.CreateAssignment(ctx, &models.CreateAssignmentRequest{OwnerEmail: "teacher@example.com", ClassID: "missing", Title: "HW1"})
	assert.ErrorIs(t, err, qerrors.ClassNotFoundError)

	a := createAssignment(t, r, "Teacher@Example.com", class.ID, "HW1")
	assert.Equal(t, class.ID, a.ClassID)

	list, err := r.ListAssignments(ctx, class.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "HW1", list[0].Title)
}

func TestSubmitAssignmentIncrementsCounter(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepository(t)
	class := createApprovedClass(t, r, "teacher@example.com", "Go basics")
	a := createAssignment(t, r, "teacher@example.com", class.ID, "HW1")

	res := submit(t, r, a.ID, "student@example.com")
	assert.NotEmpty(t, res.InsertedID)
	require.NotNil(t, res.UpdateResult)
	assert.Equal(t, int64(1), res.UpdateResult.ModifiedCount)
	assert.Empty(t, res.UpdateError)

	submit(t, r, a.ID, "other@example.com")

	stored, err := r.GetAssignment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.SubmissionCount)
}

func TestSubmissionSurvivesCounterFailure(t *testing.T) {
	ctx := context.Background()
	r, store := newTestRepository(t)
	class := createApprovedClass(t, r, "teacher@example.com", "Go basics")
	a := createAssignment(t, r, "teacher@example.com", class.ID, "HW1")

	store.failOn("increment", models.AssignmentsCollection)
	res := submit(t, r, a.ID, "student@example.com")
	assert.NotEmpty(t, res.InsertedID)
	assert.NotEmpty(t, res.UpdateError)

	doc, err := r.store.FindOne(ctx, models.SubmissionsCollection, docstore.ByID(res.InsertedID))
	require.NoError(t, err)
	var submission models.Submission
	require.NoError(t, docstore.Decode(doc, &submission))
	assert.Equal(t, a.ID, submission.AssignmentID)
	assert.Equal(t, "student@example.com", submission.StudentEmail)
	assert.False(t, submission.Timestamp.IsZero())

	stored, err := r.GetAssignment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.SubmissionCount)

	store.heal()
	recount, err := r.RecountAssignmentSubmissions(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), recount.Previous)
	assert.Equal(t, int64(1), recount.Current)
}

func TestSubmitAssignmentUnknownAssignment(t *testing.T) {
	r, _ := newTestRepository(t)
	res := submit(t, r, "missing", "student@example.com")

	assert.NotEmpty(t, res.InsertedID)
	assert.Contains(t, res.UpdateError, qerrors.AssignmentNotFoundError.Error())
}

func TestSubmitAssignmentInsertFailure(t *testing.T) {
	r, store := newTestRepository(t)
	store.failOn("insert", models.SubmissionsCollection)

	_, err := r.SubmitAssignment(context.Background(), &models.SubmitAssignmentRequest{
		AssignmentID:   "a",
		StudentEmail:   "student@example.com",
		SubmissionData: "x",
	})
	assert.ErrorIs(t, err, errInjected)
}

func TestCountClassSubmissions(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepository(t)
	class := createApprovedClass(t, r, "teacher@example.com", "Go basics")
	otherClass := createApprovedClass(t, r, "teacher@example.com", "Rust basics")

	var want int64
	for i := 0; i < 12; i++ {
		a := createAssignment(t, r, "teacher@example.com", class.ID, fmt.Sprintf("HW%d", i))
		for j := 0; j <= i%3; j++ {
			submit(t, r, a.ID, fmt.Sprintf("s%d@example.com", j))
			want++
		}
	}
	other := createAssignment(t, r, "teacher@example.com", otherClass.ID, "Other")
	submit(t, r, other.ID, "s@example.com")

	got, err := r.CountClassSubmissions(ctx, class.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	empty, err := r.CountClassSubmissions(ctx, "no-assignments")
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty)
}
