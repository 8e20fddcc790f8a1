package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/codearena/arena-go-api/internal/models"
	"github.com/codearena/arena-go-api/internal/observability"
	"github.com/codearena/arena-go-api/internal/repository"
	"github.com/codearena/arena-go-api/pkg/events"
	"github.com/codearena/arena-go-api/pkg/sandbox"
)

// CaseRunner executes one submission against one test input inside the
// sandbox. Failures are encoded in the result, never returned as errors.
type CaseRunner interface {
	Run(ctx context.Context, code, language, input string, timeLimitMs, memoryLimitMB int) sandbox.ExecutionResult
}

// JudgeService drives one submission through all of its test cases and owns
// every mutation of the submission record after intake.
type JudgeService interface {
	Judge(ctx context.Context, submissionID uint)
}

type judgeService struct {
	submissions repository.SubmissionRepository
	problems    repository.ProblemRepository
	stats       StatsService
	runner      CaseRunner
	publisher   events.Publisher
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewJudgeService constructs the judging orchestrator.
func NewJudgeService(submissions repository.SubmissionRepository, problems repository.ProblemRepository, stats StatsService, runner CaseRunner, publisher events.Publisher, logger zerolog.Logger) JudgeService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	return &judgeService{
		submissions: submissions,
		problems:    problems,
		stats:       stats,
		runner:      runner,
		publisher:   publisher,
		logger:      logger.With().Str("component", "judge_service").Logger(),
		tracer:      otel.Tracer("github.com/codearena/arena-go-api/internal/service/judge"),
	}
}

// Judge runs the full judging pipeline for one submission. It never panics
// out and never leaves a started submission in a non-terminal state: any
// unexpected failure forces the Runtime Error verdict.
func (s *judgeService) Judge(ctx context.Context, submissionID uint) {
	ctx, span := s.tracer.Start(ctx, "judge.submission", trace.WithAttributes(
		attribute.Int64("judge.submission_id", int64(submissionID)),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Uint("submission_id", submissionID).Msg("panic while judging")
			s.forceFailure(submissionID, fmt.Sprintf("panic: %v", r))
		}
	}()

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submissionID).Msg("submission not found, aborting judge")
		return
	}

	// Terminal verdicts are final; a duplicate schedule is a no-op.
	if submission.Status.IsTerminal() {
		s.logger.Warn().Uint("submission_id", submissionID).Str("status", string(submission.Status)).Msg("submission already judged")
		return
	}

	problem, err := s.problems.GetByID(ctx, submission.ProblemID)
	if err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submissionID).Uint("problem_id", submission.ProblemID).Msg("problem not found, aborting judge")
		return
	}

	start := time.Now()

	// Claim the submission before touching the sandbox: the watchdog may have
	// re-enqueued it while the original queue entry was still pending, and two
	// workers holding the same id must never both judge it.
	claimed, err := s.submissions.ClaimForJudging(ctx, submission.ID)
	if err != nil {
		// The row stays Pending; the watchdog re-enqueues it later.
		s.logger.Error().Err(err).Uint("submission_id", submissionID).Msg("failed to claim submission for judging")
		return
	}
	if !claimed {
		s.logger.Debug().Uint("submission_id", submissionID).Msg("submission already claimed by another worker")
		return
	}
	submission.Status = models.SubmissionStatusJudging

	outcome := s.runTestCases(ctx, submission, problem)

	now := time.Now().UTC()
	submission.Status = outcome.status
	submission.Verdict = outcome.verdict
	submission.TestsPassed = outcome.passed
	submission.TotalTests = len(problem.TestCases)
	submission.RuntimeMs = outcome.averageRuntimeMs()
	submission.MemoryKB = outcome.maxMemoryKB
	submission.JudgedAt = &now

	finalized, err := s.submissions.FinalizeVerdict(ctx, &submission)
	if err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submissionID).Msg("failed to persist verdict")
		s.forceFailure(submissionID, "could not persist verdict")
		return
	}
	if !finalized {
		// The watchdog finalised the row first; its terminal state stands and
		// this verdict must not reach statistics or consumers.
		s.logger.Warn().Uint("submission_id", submissionID).Msg("submission already finalised, discarding verdict")
		return
	}

	if err := s.stats.Apply(ctx, submission, problem); err != nil {
		// The verdict stands even when the aggregates lag behind.
		s.logger.Error().Err(err).Uint("submission_id", submissionID).Msg("failed to update statistics")
	}

	observability.JudgeVerdicts().WithLabelValues(string(submission.Status)).Inc()
	observability.JudgeDuration().WithLabelValues(submission.Language).Observe(time.Since(start).Seconds())

	s.publisher.PublishVerdict(events.VerdictEvent{
		SubmissionID: submission.ID,
		UserID:       submission.UserID,
		ProblemID:    submission.ProblemID,
		Language:     submission.Language,
		Status:       string(submission.Status),
		TestsPassed:  submission.TestsPassed,
		TotalTests:   submission.TotalTests,
		RuntimeMs:    submission.RuntimeMs,
		MemoryKB:     submission.MemoryKB,
		JudgedAt:     now,
	})

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Str("status", string(submission.Status)).
		Int("tests_passed", submission.TestsPassed).
		Int("total_tests", submission.TotalTests).
		Msg("submission judged")
}

type judgeOutcome struct {
	status         models.SubmissionStatus
	verdict        string
	passed         int
	executed       int
	totalRuntimeMs int64
	maxMemoryKB    int64
}

func (o judgeOutcome) averageRuntimeMs() int64 {
	if o.executed == 0 {
		return 0
	}
	return o.totalRuntimeMs / int64(o.executed)
}

// runTestCases executes the problem's test cases strictly in stored order and
// stops at the first failing case.
func (s *judgeService) runTestCases(ctx context.Context, submission models.Submission, problem models.Problem) judgeOutcome {
	outcome := judgeOutcome{
		status:  models.SubmissionStatusAccepted,
		verdict: "All test cases passed",
	}

	for i, testCase := range problem.TestCases {
		result := s.runner.Run(ctx, submission.Code, submission.Language, testCase.Input, problem.TimeLimitMs, problem.MemoryLimitMB)

		outcome.executed++
		outcome.totalRuntimeMs += result.RuntimeMs
		if result.MemoryKB > outcome.maxMemoryKB {
			outcome.maxMemoryKB = result.MemoryKB
		}

		caseNumber := i + 1
		switch result.Verdict {
		case sandbox.VerdictCompilationError:
			outcome.status = models.SubmissionStatusCompilationError
			outcome.verdict = result.Error
			if outcome.verdict == "" {
				outcome.verdict = "Compilation failed"
			}
			return outcome
		case sandbox.VerdictTimeLimitExceeded:
			outcome.status = models.SubmissionStatusTimeLimitExceeded
			outcome.verdict = fmt.Sprintf("Time limit exceeded on test case %d", caseNumber)
			return outcome
		case sandbox.VerdictMemoryLimitExceeded:
			outcome.status = models.SubmissionStatusMemoryLimitExceeded
			outcome.verdict = fmt.Sprintf("Memory limit exceeded on test case %d", caseNumber)
			return outcome
		case sandbox.VerdictRuntimeError:
			outcome.status = models.SubmissionStatusRuntimeError
			outcome.verdict = fmt.Sprintf("Runtime error on test case %d: %s", caseNumber, result.Error)
			return outcome
		case sandbox.VerdictAccepted:
			// The sandbox only reports that execution succeeded; answer
			// correctness is decided here, where the expected output lives.
			if strings.TrimSpace(testCase.Output) == strings.TrimSpace(result.Output) {
				outcome.passed++
				continue
			}
			outcome.status = models.SubmissionStatusWrongAnswer
			outcome.verdict = fmt.Sprintf("Wrong answer on test case %d", caseNumber)
			return outcome
		default:
			outcome.status = models.SubmissionStatusRuntimeError
			outcome.verdict = fmt.Sprintf("Unexpected execution verdict %q on test case %d", result.Verdict, caseNumber)
			return outcome
		}
	}

	return outcome
}

// forceFailure is the pipeline's fatal-error catch-all: the submission is
// finalised as Runtime Error with a diagnostic message so it never hangs in
// Judging. The transition is guarded, so a row this worker never claimed, or
// one already terminal, is left untouched. A fresh context is used because the
// judging context may already be cancelled.
func (s *judgeService) forceFailure(submissionID uint, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	_, err := s.submissions.FinalizeVerdict(ctx, &models.Submission{
		ID:       submissionID,
		Status:   models.SubmissionStatusRuntimeError,
		Verdict:  "Judge system error: " + reason,
		JudgedAt: &now,
	})
	if err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submissionID).Msg("failed to force failure verdict")
	}
}
