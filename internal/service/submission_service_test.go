package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/codearena/arena-go-api/internal/dto"
	"github.com/codearena/arena-go-api/internal/models"
	"github.com/codearena/arena-go-api/internal/repository"
	"github.com/codearena/arena-go-api/internal/worker"
)

type stubQueue struct {
	enqueued []uint
	err      error
}

func (q *stubQueue) Enqueue(submissionID uint) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, submissionID)
	return nil
}

func newSubmissionFixture(problem models.Problem, queue *stubQueue) (*stubSubmissionRepo, SubmissionService) {
	submissions := newStubSubmissionRepo()
	problems := &stubProblemRepo{problem: problem}
	svc := NewSubmissionService(submissions, problems, queue, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())
	return submissions, svc
}

func validJudgeRequest() dto.JudgeRequest {
	return dto.JudgeRequest{
		ProblemID: 1,
		Code:      "print(input())",
		Language:  "python",
	}
}

func TestSubmitPersistsPendingAndEnqueues(t *testing.T) {
	queue := &stubQueue{}
	submissions, svc := newSubmissionFixture(problemWithCases("a", "b", "c"), queue)

	ack, err := svc.Submit(context.Background(), 3, validJudgeRequest())
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusPending, ack.Status)
	require.NotZero(t, ack.SubmissionID)
	require.Equal(t, []uint{ack.SubmissionID}, queue.enqueued)

	stored := submissions.stored[ack.SubmissionID]
	require.Equal(t, 3, stored.TotalTests, "total is fixed at intake from the problem's test set")
	require.Equal(t, uint(3), stored.UserID)
}

func TestSubmitRejectsWhenQueueSaturated(t *testing.T) {
	queue := &stubQueue{err: worker.ErrQueueFull}
	submissions, svc := newSubmissionFixture(problemWithCases("a"), queue)

	_, err := svc.Submit(context.Background(), 3, validJudgeRequest())
	require.ErrorIs(t, err, ErrJudgeBusy)
	require.Len(t, submissions.deleted, 1, "rejected submission must be rolled back")
	require.Empty(t, submissions.stored)
}

func TestSubmitRejectsUnsupportedLanguage(t *testing.T) {
	queue := &stubQueue{}
	submissions, svc := newSubmissionFixture(problemWithCases("a"), queue)

	request := validJudgeRequest()
	request.Language = "brainfuck"

	_, err := svc.Submit(context.Background(), 3, request)
	require.ErrorIs(t, err, ErrUnsupportedLanguage)
	require.Empty(t, submissions.stored)
	require.Empty(t, queue.enqueued)
}

func TestSubmitRejectsUnknownProblem(t *testing.T) {
	queue := &stubQueue{}
	_, svc := newSubmissionFixture(models.Problem{}, queue)

	_, err := svc.Submit(context.Background(), 3, validJudgeRequest())
	require.ErrorIs(t, err, ErrProblemNotFound)
	require.Empty(t, queue.enqueued)
}

func TestSubmitValidatesPayload(t *testing.T) {
	queue := &stubQueue{}
	_, svc := newSubmissionFixture(problemWithCases("a"), queue)

	request := validJudgeRequest()
	request.Code = ""

	_, err := svc.Submit(context.Background(), 3, request)
	require.Error(t, err)
	require.Empty(t, queue.enqueued)
}

func TestGetIsRestrictedToOwnerOrAdmin(t *testing.T) {
	submissions := newStubSubmissionRepo(models.Submission{
		ID:     7,
		UserID: 3,
		Code:   "secret source",
		Status: models.SubmissionStatusAccepted,
	})
	svc := NewSubmissionService(submissions, &stubProblemRepo{}, &stubQueue{}, validator.New(), zerolog.Nop())

	owner, err := svc.Get(context.Background(), 7, 3, models.RoleUser)
	require.NoError(t, err)
	require.Equal(t, "secret source", owner.Code)

	admin, err := svc.Get(context.Background(), 7, 99, models.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, "secret source", admin.Code)

	_, err = svc.Get(context.Background(), 7, 99, models.RoleUser)
	require.ErrorIs(t, err, ErrSubmissionForbidden)

	_, err = svc.Get(context.Background(), 404, 3, models.RoleUser)
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestListScopesToCallerAndOmitsCode(t *testing.T) {
	submissions := newStubSubmissionRepo(
		models.Submission{ID: 1, UserID: 3, Code: "mine"},
		models.Submission{ID: 2, UserID: 4, Code: "theirs"},
	)
	svc := NewSubmissionService(submissions, &stubProblemRepo{}, &stubQueue{}, validator.New(), zerolog.Nop())

	list, err := svc.List(context.Background(), 3, repository.SubmissionQuery{Page: -1, PageSize: 500})
	require.NoError(t, err)
	require.Len(t, list.Submissions, 1)
	require.Equal(t, uint(3), list.Submissions[0].UserID)
	require.Empty(t, list.Submissions[0].Code, "list views never expose source code")
	require.Equal(t, 1, list.Page)
	require.Equal(t, 20, list.PageSize)
}
