package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/codearena/arena-go-api/internal/dto"
	"github.com/codearena/arena-go-api/internal/models"
	"github.com/codearena/arena-go-api/internal/repository"
)

// ProblemService exposes problem authoring and the public read surface.
type ProblemService interface {
	Create(ctx context.Context, authorID uint, payload dto.ProblemCreateRequest) (dto.ProblemResponse, error)
	Get(ctx context.Context, id uint, isAdmin bool) (dto.ProblemResponse, error)
	List(ctx context.Context, query repository.ProblemQuery) (dto.ProblemListResponse, error)
}

type problemService struct {
	problems  repository.ProblemRepository
	cache     *redis.Client
	cacheTTL  time.Duration
	sanitizer *bluemonday.Policy
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewProblemService constructs the problem service. The Redis client is
// optional; without it every read goes to the record store.
func NewProblemService(problems repository.ProblemRepository, cache *redis.Client, cacheTTL time.Duration, validate *validator.Validate, logger zerolog.Logger) ProblemService {
	return &problemService{
		problems:  problems,
		cache:     cache,
		cacheTTL:  cacheTTL,
		sanitizer: bluemonday.UGCPolicy(),
		validator: validate,
		logger:    logger.With().Str("component", "problem_service").Logger(),
	}
}

// Create persists a new problem together with its ordered judging set. The
// statement is sanitised because it is rendered to other users as rich text.
func (s *problemService) Create(ctx context.Context, authorID uint, payload dto.ProblemCreateRequest) (dto.ProblemResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProblemResponse{}, err
	}

	samples, err := json.Marshal(payload.Samples)
	if err != nil {
		return dto.ProblemResponse{}, fmt.Errorf("encode samples: %w", err)
	}

	cases := make([]models.TestCase, 0, len(payload.TestCases))
	for i, tc := range payload.TestCases {
		cases = append(cases, models.TestCase{
			Position: i + 1,
			Input:    tc.Input,
			Output:   tc.Output,
			Hidden:   tc.Hidden,
		})
	}

	problem := models.Problem{
		Title:         strings.TrimSpace(payload.Title),
		Difficulty:    payload.Difficulty,
		Tags:          strings.Join(payload.Tags, ","),
		Description:   s.sanitizer.Sanitize(payload.Description),
		Samples:       datatypes.JSON(samples),
		TimeLimitMs:   payload.TimeLimitMs,
		MemoryLimitMB: payload.MemoryLimitMB,
		CreatedBy:     authorID,
		TestCases:     cases,
	}

	if problem.TimeLimitMs <= 0 {
		problem.TimeLimitMs = 2000
	}
	if problem.MemoryLimitMB <= 0 {
		problem.MemoryLimitMB = 256
	}

	if err := s.problems.Create(ctx, &problem); err != nil {
		return dto.ProblemResponse{}, err
	}

	s.logger.Info().Uint("problem_id", problem.ID).Str("title", problem.Title).Msg("problem created")

	return dto.NewProblemResponse(problem, true), nil
}

// Get returns the problem statement. The public view is cached with a short
// TTL; admin reads bypass the cache because they include hidden test cases.
func (s *problemService) Get(ctx context.Context, id uint, isAdmin bool) (dto.ProblemResponse, error) {
	if !isAdmin {
		if cached, ok := s.cachedProblem(ctx, id); ok {
			return cached, nil
		}
	}

	problem, err := s.problems.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProblemResponse{}, ErrProblemNotFound
		}
		return dto.ProblemResponse{}, err
	}

	response := dto.NewProblemResponse(problem, isAdmin)
	if !isAdmin {
		s.storeCachedProblem(ctx, id, response)
	}

	return response, nil
}

// List returns problem summaries filtered by difficulty and tag.
func (s *problemService) List(ctx context.Context, query repository.ProblemQuery) (dto.ProblemListResponse, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PageSize < 1 || query.PageSize > 100 {
		query.PageSize = 20
	}

	problems, total, err := s.problems.List(ctx, query)
	if err != nil {
		return dto.ProblemListResponse{}, err
	}

	summaries := make([]dto.ProblemSummary, 0, len(problems))
	for _, problem := range problems {
		summaries = append(summaries, dto.NewProblemSummary(problem))
	}

	return dto.ProblemListResponse{
		Problems: summaries,
		Page:     query.Page,
		PageSize: query.PageSize,
		Total:    total,
	}, nil
}

func (s *problemService) cacheKey(id uint) string {
	return fmt.Sprintf("arena:problem:%d", id)
}

func (s *problemService) cachedProblem(ctx context.Context, id uint) (dto.ProblemResponse, bool) {
	if s.cache == nil {
		return dto.ProblemResponse{}, false
	}

	raw, err := s.cache.Get(ctx, s.cacheKey(id)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Uint("problem_id", id).Msg("problem cache read failed")
		}
		return dto.ProblemResponse{}, false
	}

	var response dto.ProblemResponse
	if err := json.Unmarshal([]byte(raw), &response); err != nil {
		return dto.ProblemResponse{}, false
	}
	return response, true
}

func (s *problemService) storeCachedProblem(ctx context.Context, id uint, response dto.ProblemResponse) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}

	payload, err := json.Marshal(response)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, s.cacheKey(id), payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("problem_id", id).Msg("problem cache write failed")
	}
}
