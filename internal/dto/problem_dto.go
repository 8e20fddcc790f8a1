package dto

import (
	"encoding/json"
	"time"

	"github.com/codearena/arena-go-api/internal/models"
)

// SamplePair is a visible input/output example shown in problem statements.
type SamplePair struct {
	Input  string `json:"input" validate:"required"`
	Output string `json:"output" validate:"required"`
}

// TestCaseInput describes one judging test case on problem creation.
type TestCaseInput struct {
	Input  string `json:"input"`
	Output string `json:"output" validate:"required"`
	Hidden bool   `json:"hidden"`
}

// ProblemCreateRequest is the authoring payload for a new problem.
type ProblemCreateRequest struct {
	Title         string          `json:"title" validate:"required,max=255"`
	Difficulty    string          `json:"difficulty" validate:"required,oneof=Easy Medium Hard"`
	Tags          []string        `json:"tags"`
	Description   string          `json:"description" validate:"required"`
	Samples       []SamplePair    `json:"samples" validate:"dive"`
	TestCases     []TestCaseInput `json:"test_cases" validate:"required,min=1,dive"`
	TimeLimitMs   int             `json:"time_limit_ms" validate:"omitempty,min=100,max=20000"`
	MemoryLimitMB int             `json:"memory_limit_mb" validate:"omitempty,min=16,max=1024"`
}

// TestCaseView is the API view of a judging test case. Hidden cases expose
// only their position.
type TestCaseView struct {
	Position int    `json:"position"`
	Input    string `json:"input,omitempty"`
	Output   string `json:"output,omitempty"`
	Hidden   bool   `json:"hidden"`
}

// ProblemResponse is the full problem view.
type ProblemResponse struct {
	ID              uint           `json:"id"`
	Title           string         `json:"title"`
	Difficulty      string         `json:"difficulty"`
	Tags            []string       `json:"tags"`
	Description     string         `json:"description"`
	Samples         []SamplePair   `json:"samples"`
	TimeLimitMs     int            `json:"time_limit_ms"`
	MemoryLimitMB   int            `json:"memory_limit_mb"`
	SolvedCount     int64          `json:"solved_count"`
	SubmissionCount int64          `json:"submission_count"`
	AcceptanceRate  float64        `json:"acceptance_rate"`
	TestCases       []TestCaseView `json:"test_cases,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// NewProblemResponse maps a problem to its API view. Hidden test case payloads
// are withheld unless the caller is an admin.
func NewProblemResponse(problem models.Problem, includeHidden bool) ProblemResponse {
	var samples []SamplePair
	if len(problem.Samples) > 0 {
		// Samples were marshalled by us on write; a decode failure means a
		// corrupt row and is surfaced as an empty list.
		_ = json.Unmarshal(problem.Samples, &samples)
	}

	cases := make([]TestCaseView, 0, len(problem.TestCases))
	for _, tc := range problem.TestCases {
		view := TestCaseView{Position: tc.Position, Hidden: tc.Hidden}
		if !tc.Hidden || includeHidden {
			view.Input = tc.Input
			view.Output = tc.Output
		}
		cases = append(cases, view)
	}

	return ProblemResponse{
		ID:              problem.ID,
		Title:           problem.Title,
		Difficulty:      problem.Difficulty,
		Tags:            problem.TagList(),
		Description:     problem.Description,
		Samples:         samples,
		TimeLimitMs:     problem.TimeLimitMs,
		MemoryLimitMB:   problem.MemoryLimitMB,
		SolvedCount:     problem.SolvedCount,
		SubmissionCount: problem.SubmissionCount,
		AcceptanceRate:  problem.AcceptanceRate,
		TestCases:       cases,
		CreatedAt:       problem.CreatedAt,
	}
}

// ProblemSummary is the list view of a problem without statement or cases.
type ProblemSummary struct {
	ID             uint     `json:"id"`
	Title          string   `json:"title"`
	Difficulty     string   `json:"difficulty"`
	Tags           []string `json:"tags"`
	SolvedCount    int64    `json:"solved_count"`
	AcceptanceRate float64  `json:"acceptance_rate"`
}

// NewProblemSummary maps a problem to its list view.
func NewProblemSummary(problem models.Problem) ProblemSummary {
	return ProblemSummary{
		ID:             problem.ID,
		Title:          problem.Title,
		Difficulty:     problem.Difficulty,
		Tags:           problem.TagList(),
		SolvedCount:    problem.SolvedCount,
		AcceptanceRate: problem.AcceptanceRate,
	}
}

// ProblemListResponse wraps a paginated set of problem summaries.
type ProblemListResponse struct {
	Problems []ProblemSummary `json:"problems"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Total    int64            `json:"total"`
}
