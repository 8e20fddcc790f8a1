package models

import "time"

// SubmissionStatus enumerates the lifecycle states of a submission. The state
// machine is Pending -> Judging -> one terminal verdict; terminal states are
// never re-entered.
type SubmissionStatus string

// Submission lifecycle states.
const (
	SubmissionStatusPending             SubmissionStatus = "Pending"
	SubmissionStatusJudging             SubmissionStatus = "Judging"
	SubmissionStatusAccepted            SubmissionStatus = "Accepted"
	SubmissionStatusWrongAnswer         SubmissionStatus = "Wrong Answer"
	SubmissionStatusTimeLimitExceeded   SubmissionStatus = "Time Limit Exceeded"
	SubmissionStatusMemoryLimitExceeded SubmissionStatus = "Memory Limit Exceeded"
	SubmissionStatusRuntimeError        SubmissionStatus = "Runtime Error"
	SubmissionStatusCompilationError    SubmissionStatus = "Compilation Error"
)

// IsTerminal reports whether the status is a final verdict.
func (s SubmissionStatus) IsTerminal() bool {
	switch s {
	case SubmissionStatusPending, SubmissionStatusJudging:
		return false
	default:
		return true
	}
}

// Submission records one attempt to solve a problem. Created by intake in the
// Pending state; exclusively mutated by the judging orchestrator afterwards.
// JudgingStartedAt is stamped by the guarded Pending->Judging claim and is what
// stuck-judging detection keys on.
type Submission struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	UserID           uint             `gorm:"not null;index" json:"user_id"`
	ProblemID        uint             `gorm:"not null;index" json:"problem_id"`
	Code             string           `gorm:"type:text;not null" json:"code"`
	Language         string           `gorm:"size:32;not null" json:"language"`
	Status           SubmissionStatus `gorm:"size:32;not null;index;default:Pending" json:"status"`
	Verdict          string           `gorm:"type:text" json:"verdict"`
	TestsPassed      int              `gorm:"default:0" json:"tests_passed"`
	TotalTests       int              `gorm:"default:0" json:"total_tests"`
	RuntimeMs        int64            `gorm:"default:0" json:"runtime_ms"`
	MemoryKB         int64            `gorm:"default:0" json:"memory_kb"`
	SubmittedAt      time.Time        `gorm:"autoCreateTime;index" json:"submitted_at"`
	JudgingStartedAt *time.Time       `json:"judging_started_at,omitempty"`
	JudgedAt         *time.Time       `json:"judged_at"`
}
