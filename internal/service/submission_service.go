package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/codearena/arena-go-api/internal/dto"
	"github.com/codearena/arena-go-api/internal/models"
	"github.com/codearena/arena-go-api/internal/observability"
	"github.com/codearena/arena-go-api/internal/repository"
	"github.com/codearena/arena-go-api/pkg/sandbox"
)

// ErrProblemNotFound indicates the target problem does not exist.
var ErrProblemNotFound = errors.New("problem not found")

// ErrSubmissionNotFound indicates the submission cannot be located.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrSubmissionForbidden indicates the caller may not view the submission.
var ErrSubmissionForbidden = errors.New("forbidden")

// ErrUnsupportedLanguage indicates the requested language is not in the registry.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// ErrJudgeBusy indicates the judge queue is saturated and the submission was rejected.
var ErrJudgeBusy = errors.New("judge queue is full")

// JudgeQueue is the bounded scheduling boundary between intake and the judge
// workers. Enqueue fails fast when the queue is saturated.
type JudgeQueue interface {
	Enqueue(submissionID uint) error
}

// SubmissionService is the external-facing intake and read surface for submissions.
type SubmissionService interface {
	Submit(ctx context.Context, userID uint, payload dto.JudgeRequest) (dto.JudgeAck, error)
	Get(ctx context.Context, id, viewerID uint, role string) (dto.SubmissionResponse, error)
	List(ctx context.Context, userID uint, query repository.SubmissionQuery) (dto.SubmissionListResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	problems    repository.ProblemRepository
	queue       JudgeQueue
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewSubmissionService constructs the submission intake service.
func NewSubmissionService(submissions repository.SubmissionRepository, problems repository.ProblemRepository, queue JudgeQueue, validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions: submissions,
		problems:    problems,
		queue:       queue,
		validator:   validate,
		logger:      logger.With().Str("component", "submission_service").Logger(),
	}
}

// Submit validates the judge request, persists a Pending submission and
// schedules it for judging. The caller gets an immediate acknowledgment and
// never blocks on the judging pipeline.
func (s *submissionService) Submit(ctx context.Context, userID uint, payload dto.JudgeRequest) (dto.JudgeAck, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.JudgeAck{}, err
	}

	if _, err := sandbox.LookupLanguage(payload.Language); err != nil {
		return dto.JudgeAck{}, ErrUnsupportedLanguage
	}

	problem, err := s.problems.GetByID(ctx, payload.ProblemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.JudgeAck{}, ErrProblemNotFound
		}
		return dto.JudgeAck{}, err
	}

	submission := models.Submission{
		UserID:     userID,
		ProblemID:  problem.ID,
		Code:       payload.Code,
		Language:   payload.Language,
		Status:     models.SubmissionStatusPending,
		TotalTests: len(problem.TestCases),
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.JudgeAck{}, err
	}

	if err := s.queue.Enqueue(submission.ID); err != nil {
		observability.JudgeRejected().Inc()
		s.logger.Warn().Uint("submission_id", submission.ID).Msg("judge queue saturated, rejecting submission")
		if deleteErr := s.submissions.Delete(ctx, submission.ID); deleteErr != nil {
			s.logger.Error().Err(deleteErr).Uint("submission_id", submission.ID).Msg("failed to roll back rejected submission")
		}
		return dto.JudgeAck{}, ErrJudgeBusy
	}

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("user_id", userID).
		Uint("problem_id", problem.ID).
		Str("language", submission.Language).
		Msg("submission scheduled")

	return dto.NewJudgeAck(submission), nil
}

// Get returns the submission state at any point of its lifecycle. Only the
// owner or an admin may view it; source code is included for those viewers.
func (s *submissionService) Get(ctx context.Context, id, viewerID uint, role string) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if submission.UserID != viewerID && role != models.RoleAdmin {
		return dto.SubmissionResponse{}, ErrSubmissionForbidden
	}

	return dto.NewSubmissionResponse(submission, true), nil
}

// List returns the caller's own submissions, newest first.
func (s *submissionService) List(ctx context.Context, userID uint, query repository.SubmissionQuery) (dto.SubmissionListResponse, error) {
	query.UserID = userID
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PageSize < 1 || query.PageSize > 100 {
		query.PageSize = 20
	}

	submissions, total, err := s.submissions.List(ctx, query)
	if err != nil {
		return dto.SubmissionListResponse{}, err
	}

	items := make([]dto.SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		items = append(items, dto.NewSubmissionResponse(submission, false))
	}

	return dto.SubmissionListResponse{
		Submissions: items,
		Page:        query.Page,
		PageSize:    query.PageSize,
		Total:       total,
	}, nil
}
