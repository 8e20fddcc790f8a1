package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/codearena/arena-go-api/internal/models"
	"github.com/codearena/arena-go-api/internal/repository"
	"github.com/codearena/arena-go-api/pkg/events"
	"github.com/codearena/arena-go-api/pkg/sandbox"
)

type stubSubmissionRepo struct {
	stored   map[uint]models.Submission
	deleted  []uint
	claims   int
	finals   int
	prior    bool
	priorErr error
	err      error
}

func newStubSubmissionRepo(submissions ...models.Submission) *stubSubmissionRepo {
	repo := &stubSubmissionRepo{stored: make(map[uint]models.Submission)}
	for _, submission := range submissions {
		repo.stored[submission.ID] = submission
	}
	return repo
}

func (s *stubSubmissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	if s.err != nil {
		return s.err
	}
	if submission.ID == 0 {
		submission.ID = uint(len(s.stored) + 1)
	}
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = time.Now()
	}
	s.stored[submission.ID] = *submission
	return nil
}

func (s *stubSubmissionRepo) Delete(ctx context.Context, id uint) error {
	s.deleted = append(s.deleted, id)
	delete(s.stored, id)
	return nil
}

func (s *stubSubmissionRepo) ClaimForJudging(ctx context.Context, id uint) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	submission, ok := s.stored[id]
	if !ok || submission.Status != models.SubmissionStatusPending {
		return false, nil
	}
	now := time.Now().UTC()
	submission.Status = models.SubmissionStatusJudging
	submission.JudgingStartedAt = &now
	s.stored[id] = submission
	s.claims++
	return true, nil
}

func (s *stubSubmissionRepo) FinalizeVerdict(ctx context.Context, submission *models.Submission) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	stored, ok := s.stored[submission.ID]
	if !ok || stored.Status != models.SubmissionStatusJudging {
		return false, nil
	}
	stored.Status = submission.Status
	stored.Verdict = submission.Verdict
	stored.TestsPassed = submission.TestsPassed
	stored.RuntimeMs = submission.RuntimeMs
	stored.MemoryKB = submission.MemoryKB
	stored.JudgedAt = submission.JudgedAt
	s.stored[submission.ID] = stored
	s.finals++
	return true, nil
}

func (s *stubSubmissionRepo) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	if s.err != nil {
		return models.Submission{}, s.err
	}
	submission, ok := s.stored[id]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return submission, nil
}

func (s *stubSubmissionRepo) List(ctx context.Context, query repository.SubmissionQuery) ([]models.Submission, int64, error) {
	var out []models.Submission
	for _, submission := range s.stored {
		if query.UserID != 0 && submission.UserID != query.UserID {
			continue
		}
		out = append(out, submission)
	}
	return out, int64(len(out)), nil
}

func (s *stubSubmissionRepo) HasPriorAccepted(ctx context.Context, userID, problemID, excludeID uint) (bool, error) {
	if s.priorErr != nil {
		return false, s.priorErr
	}
	return s.prior, nil
}

func (s *stubSubmissionRepo) ListStuck(ctx context.Context, status models.SubmissionStatus, before time.Time) ([]models.Submission, error) {
	return nil, nil
}

type stubProblemRepo struct {
	problem  models.Problem
	err      error
	counters []struct {
		ID       uint
		Accepted bool
	}
}

func (s *stubProblemRepo) Create(ctx context.Context, problem *models.Problem) error {
	if s.err != nil {
		return s.err
	}
	if problem.ID == 0 {
		problem.ID = 1
	}
	s.problem = *problem
	return nil
}

func (s *stubProblemRepo) GetByID(ctx context.Context, id uint) (models.Problem, error) {
	if s.err != nil {
		return models.Problem{}, s.err
	}
	if s.problem.ID == 0 {
		return models.Problem{}, gorm.ErrRecordNotFound
	}
	return s.problem, nil
}

func (s *stubProblemRepo) List(ctx context.Context, query repository.ProblemQuery) ([]models.Problem, int64, error) {
	if s.problem.ID == 0 {
		return nil, 0, nil
	}
	return []models.Problem{s.problem}, 1, nil
}

func (s *stubProblemRepo) ApplyJudgedCounters(ctx context.Context, id uint, accepted bool) error {
	if s.err != nil {
		return s.err
	}
	s.counters = append(s.counters, struct {
		ID       uint
		Accepted bool
	}{id, accepted})
	return nil
}

type stubUserRepo struct {
	awards []int64
	err    error
}

func (s *stubUserRepo) Create(ctx context.Context, user *models.User) error { return s.err }

func (s *stubUserRepo) GetByID(ctx context.Context, id uint) (models.User, error) {
	return models.User{ID: id}, s.err
}

func (s *stubUserRepo) AwardFirstAccepted(ctx context.Context, id uint, points int64) error {
	if s.err != nil {
		return s.err
	}
	s.awards = append(s.awards, points)
	return nil
}

type scriptedRunner struct {
	results []sandbox.ExecutionResult
	calls   int
	panics  bool
}

func (r *scriptedRunner) Run(ctx context.Context, code, language, input string, timeLimitMs, memoryLimitMB int) sandbox.ExecutionResult {
	if r.panics {
		panic("runner exploded")
	}
	result := r.results[r.calls]
	r.calls++
	return result
}

type recordingStats struct {
	applied []models.Submission
	err     error
}

func (s *recordingStats) Apply(ctx context.Context, submission models.Submission, problem models.Problem) error {
	if s.err != nil {
		return s.err
	}
	s.applied = append(s.applied, submission)
	return nil
}

type recordingPublisher struct {
	published []events.VerdictEvent
}

func (p *recordingPublisher) PublishVerdict(event events.VerdictEvent) {
	p.published = append(p.published, event)
}

func acceptedRun(output string, runtimeMs, memoryKB int64) sandbox.ExecutionResult {
	return sandbox.ExecutionResult{
		Success:   true,
		Verdict:   sandbox.VerdictAccepted,
		Output:    output,
		RuntimeMs: runtimeMs,
		MemoryKB:  memoryKB,
	}
}

func problemWithCases(outputs ...string) models.Problem {
	problem := models.Problem{
		ID:            1,
		Title:         "Sum",
		Difficulty:    models.DifficultyEasy,
		TimeLimitMs:   2000,
		MemoryLimitMB: 256,
	}
	for i, output := range outputs {
		problem.TestCases = append(problem.TestCases, models.TestCase{
			ID:        uint(i + 1),
			ProblemID: 1,
			Position:  i + 1,
			Input:     "in",
			Output:    output,
			Hidden:    true,
		})
	}
	return problem
}

func newJudgeFixture(t *testing.T, problem models.Problem, submission models.Submission, runner *scriptedRunner) (*stubSubmissionRepo, *recordingStats, *recordingPublisher, JudgeService) {
	t.Helper()
	if submission.TotalTests == 0 {
		submission.TotalTests = len(problem.TestCases)
	}
	submissions := newStubSubmissionRepo(submission)
	problems := &stubProblemRepo{problem: problem}
	stats := &recordingStats{}
	publisher := &recordingPublisher{}
	svc := NewJudgeService(submissions, problems, stats, runner, publisher, zerolog.Nop())
	return submissions, stats, publisher, svc
}

func pendingSubmission() models.Submission {
	return models.Submission{
		ID:        7,
		UserID:    3,
		ProblemID: 1,
		Code:      "print(input())",
		Language:  "python",
		Status:    models.SubmissionStatusPending,
	}
}

func TestJudgeAcceptedAveragesRuntimeAndTracksMaxMemory(t *testing.T) {
	problem := problemWithCases("a", "b", "c")
	runner := &scriptedRunner{results: []sandbox.ExecutionResult{
		acceptedRun("a", 100, 10),
		acceptedRun("b", 200, 50),
		acceptedRun("c", 300, 20),
	}}
	submissions, stats, publisher, svc := newJudgeFixture(t, problem, pendingSubmission(), runner)

	svc.Judge(context.Background(), 7)

	final := submissions.stored[7]
	require.Equal(t, models.SubmissionStatusAccepted, final.Status)
	require.Equal(t, "All test cases passed", final.Verdict)
	require.Equal(t, 3, final.TestsPassed)
	require.Equal(t, 3, final.TotalTests)
	require.Equal(t, int64(200), final.RuntimeMs)
	require.Equal(t, int64(50), final.MemoryKB)
	require.NotNil(t, final.JudgedAt)

	require.Len(t, stats.applied, 1)
	require.Len(t, publisher.published, 1)
	require.Equal(t, string(models.SubmissionStatusAccepted), publisher.published[0].Status)
}

func TestJudgeShortCircuitsOnWrongAnswer(t *testing.T) {
	problem := problemWithCases("ok", "ok", "ok", "ok")
	runner := &scriptedRunner{results: []sandbox.ExecutionResult{
		acceptedRun("ok", 10, 1),
		acceptedRun("ok", 10, 1),
		acceptedRun("nope", 10, 1),
		acceptedRun("ok", 10, 1),
	}}
	submissions, _, _, svc := newJudgeFixture(t, problem, pendingSubmission(), runner)

	svc.Judge(context.Background(), 7)

	final := submissions.stored[7]
	require.Equal(t, models.SubmissionStatusWrongAnswer, final.Status)
	require.Equal(t, "Wrong answer on test case 3", final.Verdict)
	require.Equal(t, 2, final.TestsPassed)
	require.Equal(t, 4, final.TotalTests)
	require.Equal(t, 3, runner.calls, "the fourth case must never reach the sandbox")
}

func TestJudgeOutputComparisonIsTrimInsensitive(t *testing.T) {
	// Stored expected output carries a trailing newline; the sandbox already
	// trims actual output. Equality after trimming both is a match.
	problem := problemWithCases("7\n")
	runner := &scriptedRunner{results: []sandbox.ExecutionResult{acceptedRun("7", 5, 1)}}
	submissions, _, _, svc := newJudgeFixture(t, problem, pendingSubmission(), runner)

	svc.Judge(context.Background(), 7)
	require.Equal(t, models.SubmissionStatusAccepted, submissions.stored[7].Status)
}

func TestJudgeOutputComparisonIsExactAfterTrim(t *testing.T) {
	problem := problemWithCases("7")
	runner := &scriptedRunner{results: []sandbox.ExecutionResult{acceptedRun("07", 5, 1)}}
	submissions, _, _, svc := newJudgeFixture(t, problem, pendingSubmission(), runner)

	svc.Judge(context.Background(), 7)
	require.Equal(t, models.SubmissionStatusWrongAnswer, submissions.stored[7].Status)
}

func TestJudgeCompilationErrorRunsNoTestCases(t *testing.T) {
	problem := problemWithCases("1", "2")
	runner := &scriptedRunner{results: []sandbox.ExecutionResult{{
		Verdict: sandbox.VerdictCompilationError,
		Error:   "program.cpp:1: error: expected ';'",
	}}}
	submission := pendingSubmission()
	submission.Language = "cpp"
	submissions, _, _, svc := newJudgeFixture(t, problem, submission, runner)

	svc.Judge(context.Background(), 7)

	final := submissions.stored[7]
	require.Equal(t, models.SubmissionStatusCompilationError, final.Status)
	require.Contains(t, final.Verdict, "expected ';'")
	require.Equal(t, 0, final.TestsPassed)
	require.Equal(t, 1, runner.calls)
}

func TestJudgeTimeLimitExceededReportsCaseNumber(t *testing.T) {
	problem := problemWithCases("1", "2")
	runner := &scriptedRunner{results: []sandbox.ExecutionResult{
		acceptedRun("1", 50, 1),
		{Verdict: sandbox.VerdictTimeLimitExceeded, RuntimeMs: 2000},
	}}
	submissions, _, _, svc := newJudgeFixture(t, problem, pendingSubmission(), runner)

	svc.Judge(context.Background(), 7)

	final := submissions.stored[7]
	require.Equal(t, models.SubmissionStatusTimeLimitExceeded, final.Status)
	require.Equal(t, "Time limit exceeded on test case 2", final.Verdict)
	require.Equal(t, 1, final.TestsPassed)
	require.Equal(t, int64((50+2000)/2), final.RuntimeMs)
}

func TestJudgeMemoryLimitExceededVerdict(t *testing.T) {
	problem := problemWithCases("1")
	runner := &scriptedRunner{results: []sandbox.ExecutionResult{
		{Verdict: sandbox.VerdictMemoryLimitExceeded, RuntimeMs: 80, MemoryKB: 262144},
	}}
	submissions, _, _, svc := newJudgeFixture(t, problem, pendingSubmission(), runner)

	svc.Judge(context.Background(), 7)

	final := submissions.stored[7]
	require.Equal(t, models.SubmissionStatusMemoryLimitExceeded, final.Status)
	require.Equal(t, int64(262144), final.MemoryKB)
}

func TestJudgeRuntimeErrorCarriesDiagnostic(t *testing.T) {
	problem := problemWithCases("1")
	runner := &scriptedRunner{results: []sandbox.ExecutionResult{
		{Verdict: sandbox.VerdictRuntimeError, Error: "ZeroDivisionError", RuntimeMs: 12},
	}}
	submissions, _, _, svc := newJudgeFixture(t, problem, pendingSubmission(), runner)

	svc.Judge(context.Background(), 7)

	final := submissions.stored[7]
	require.Equal(t, models.SubmissionStatusRuntimeError, final.Status)
	require.Contains(t, final.Verdict, "Runtime error on test case 1")
	require.Contains(t, final.Verdict, "ZeroDivisionError")
}

func TestJudgeTerminalSubmissionIsNeverRejudged(t *testing.T) {
	problem := problemWithCases("1")
	terminal := pendingSubmission()
	terminal.Status = models.SubmissionStatusAccepted
	terminal.Verdict = "All test cases passed"
	runner := &scriptedRunner{}
	submissions, stats, publisher, svc := newJudgeFixture(t, problem, terminal, runner)

	svc.Judge(context.Background(), 7)

	require.Zero(t, runner.calls)
	require.Zero(t, submissions.claims)
	require.Zero(t, submissions.finals)
	require.Empty(t, stats.applied)
	require.Empty(t, publisher.published)
	require.Equal(t, "All test cases passed", submissions.stored[7].Verdict)
}

func TestJudgeSkipsSubmissionClaimedByAnotherWorker(t *testing.T) {
	problem := problemWithCases("1")
	claimed := pendingSubmission()
	claimed.Status = models.SubmissionStatusJudging
	runner := &scriptedRunner{}
	submissions, stats, publisher, svc := newJudgeFixture(t, problem, claimed, runner)

	svc.Judge(context.Background(), 7)

	require.Zero(t, runner.calls, "a lost claim must never reach the sandbox")
	require.Zero(t, submissions.finals)
	require.Empty(t, stats.applied)
	require.Empty(t, publisher.published)
	require.Equal(t, models.SubmissionStatusJudging, submissions.stored[7].Status)
}

func TestJudgeMissingSubmissionHasNoSideEffects(t *testing.T) {
	problem := problemWithCases("1")
	runner := &scriptedRunner{}
	submissions, stats, _, svc := newJudgeFixture(t, problem, pendingSubmission(), runner)

	svc.Judge(context.Background(), 999)

	require.Zero(t, runner.calls)
	require.Zero(t, submissions.claims)
	require.Zero(t, submissions.finals)
	require.Empty(t, stats.applied)
}

func TestJudgeStatsFailureDoesNotBlockVerdict(t *testing.T) {
	problem := problemWithCases("a")
	runner := &scriptedRunner{results: []sandbox.ExecutionResult{acceptedRun("a", 10, 1)}}
	submissions := newStubSubmissionRepo(pendingSubmission())
	problems := &stubProblemRepo{problem: problem}
	stats := &recordingStats{err: errors.New("stats store down")}
	svc := NewJudgeService(submissions, problems, stats, runner, nil, zerolog.Nop())

	svc.Judge(context.Background(), 7)

	require.Equal(t, models.SubmissionStatusAccepted, submissions.stored[7].Status)
}

func TestJudgePanicForcesRuntimeErrorVerdict(t *testing.T) {
	problem := problemWithCases("1")
	runner := &scriptedRunner{panics: true}
	submissions, _, _, svc := newJudgeFixture(t, problem, pendingSubmission(), runner)

	require.NotPanics(t, func() {
		svc.Judge(context.Background(), 7)
	})

	final := submissions.stored[7]
	require.Equal(t, models.SubmissionStatusRuntimeError, final.Status)
	require.Contains(t, final.Verdict, "Judge system error")
}
