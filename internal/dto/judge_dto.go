package dto

import (
	"time"

	"github.com/codearena/arena-go-api/internal/models"
)

// JudgeRequest is the payload accepted by the judge intake endpoint.
type JudgeRequest struct {
	ProblemID uint   `json:"problem_id" validate:"required"`
	Code      string `json:"code" validate:"required"`
	Language  string `json:"language" validate:"required"`
}

// JudgeAck acknowledges an accepted submission. The caller does not block on
// judging; the submission id is used to poll for the verdict.
type JudgeAck struct {
	SubmissionID uint                    `json:"submission_id"`
	ProblemID    uint                    `json:"problem_id"`
	Language     string                  `json:"language"`
	Status       models.SubmissionStatus `json:"status"`
	SubmittedAt  time.Time               `json:"submitted_at"`
}

// NewJudgeAck builds the intake acknowledgment from a stored submission.
func NewJudgeAck(submission models.Submission) JudgeAck {
	return JudgeAck{
		SubmissionID: submission.ID,
		ProblemID:    submission.ProblemID,
		Language:     submission.Language,
		Status:       submission.Status,
		SubmittedAt:  submission.SubmittedAt,
	}
}

// SubmissionResponse is the full view of a submission at any lifecycle point.
type SubmissionResponse struct {
	ID          uint                    `json:"id"`
	UserID      uint                    `json:"user_id"`
	ProblemID   uint                    `json:"problem_id"`
	Language    string                  `json:"language"`
	Status      models.SubmissionStatus `json:"status"`
	Verdict     string                  `json:"verdict"`
	TestsPassed int                     `json:"tests_passed"`
	TotalTests  int                     `json:"total_tests"`
	RuntimeMs   int64                   `json:"runtime_ms"`
	MemoryKB    int64                   `json:"memory_kb"`
	SubmittedAt time.Time               `json:"submitted_at"`
	JudgedAt    *time.Time              `json:"judged_at,omitempty"`
	Code        string                  `json:"code,omitempty"`
}

// NewSubmissionResponse maps a submission to its API view. The source code is
// only included for the owner or an admin.
func NewSubmissionResponse(submission models.Submission, includeCode bool) SubmissionResponse {
	response := SubmissionResponse{
		ID:          submission.ID,
		UserID:      submission.UserID,
		ProblemID:   submission.ProblemID,
		Language:    submission.Language,
		Status:      submission.Status,
		Verdict:     submission.Verdict,
		TestsPassed: submission.TestsPassed,
		TotalTests:  submission.TotalTests,
		RuntimeMs:   submission.RuntimeMs,
		MemoryKB:    submission.MemoryKB,
		SubmittedAt: submission.SubmittedAt,
		JudgedAt:    submission.JudgedAt,
	}
	if includeCode {
		response.Code = submission.Code
	}
	return response
}

// SubmissionListResponse wraps a paginated set of submissions.
type SubmissionListResponse struct {
	Submissions []SubmissionResponse `json:"submissions"`
	Page        int                  `json:"page"`
	PageSize    int                  `json:"page_size"`
	Total       int64                `json:"total"`
}
