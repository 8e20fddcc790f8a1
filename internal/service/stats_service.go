package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/codearena/arena-go-api/internal/models"
	"github.com/codearena/arena-go-api/internal/repository"
)

// StatsService folds a judged submission into the problem and user aggregates.
type StatsService interface {
	Apply(ctx context.Context, submission models.Submission, problem models.Problem) error
}

type statsService struct {
	submissions repository.SubmissionRepository
	problems    repository.ProblemRepository
	users       repository.UserRepository
	logger      zerolog.Logger
}

// NewStatsService constructs the statistics aggregator.
func NewStatsService(submissions repository.SubmissionRepository, problems repository.ProblemRepository, users repository.UserRepository, logger zerolog.Logger) StatsService {
	return &statsService{
		submissions: submissions,
		problems:    problems,
		users:       users,
		logger:      logger.With().Str("component", "stats_service").Logger(),
	}
}

// Apply bumps the problem counters for every judged submission and, on a
// user's first accepted submission for the problem, grants the difficulty
// keyed award exactly once per (user, problem) pair.
func (s *statsService) Apply(ctx context.Context, submission models.Submission, problem models.Problem) error {
	accepted := submission.Status == models.SubmissionStatusAccepted

	if err := s.problems.ApplyJudgedCounters(ctx, problem.ID, accepted); err != nil {
		return err
	}

	if !accepted {
		return nil
	}

	prior, err := s.submissions.HasPriorAccepted(ctx, submission.UserID, submission.ProblemID, submission.ID)
	if err != nil {
		return err
	}
	if prior {
		return nil
	}

	if err := s.users.AwardFirstAccepted(ctx, submission.UserID, problem.Points()); err != nil {
		return err
	}

	s.logger.Info().
		Uint("user_id", submission.UserID).
		Uint("problem_id", submission.ProblemID).
		Int64("points", problem.Points()).
		Msg("first accepted submission awarded")

	return nil
}
