package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Problem difficulties.
const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

// Sample is a visible input/output pair shown in problem statements. Samples
// are for display only and are never part of the judging set.
type Sample struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Problem is a judging target together with its aggregate statistics.
type Problem struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Title           string         `gorm:"size:255;not null" json:"title"`
	Difficulty      string         `gorm:"size:32;not null;index" json:"difficulty"`
	Tags            string         `gorm:"type:text" json:"tags"`
	Description     string         `gorm:"type:text;not null" json:"description"`
	Samples         datatypes.JSON `gorm:"type:json" json:"samples"`
	TimeLimitMs     int            `gorm:"default:2000" json:"time_limit_ms"`
	MemoryLimitMB   int            `gorm:"default:256" json:"memory_limit_mb"`
	SolvedCount     int64          `gorm:"default:0" json:"solved_count"`
	SubmissionCount int64          `gorm:"default:0" json:"submission_count"`
	AcceptanceRate  float64        `gorm:"default:0" json:"acceptance_rate"`
	CreatedBy       uint           `gorm:"not null" json:"created_by"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	TestCases       []TestCase     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"test_cases,omitempty"`
}

// TagList splits the stored comma separated tags into a slice.
func (p Problem) TagList() []string {
	if strings.TrimSpace(p.Tags) == "" {
		return nil
	}
	parts := strings.Split(p.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}

// Points returns the award granted for a user's first accepted submission.
func (p Problem) Points() int64 {
	switch p.Difficulty {
	case DifficultyEasy:
		return 10
	case DifficultyMedium:
		return 25
	case DifficultyHard:
		return 50
	default:
		return 10
	}
}

// TestCase is one input/expected-output pair of a problem's judging set.
// Hidden cases are withheld from problem statements; judging iterates all
// cases in Position order.
type TestCase struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ProblemID uint   `gorm:"not null;index" json:"problem_id"`
	Position  int    `gorm:"not null" json:"position"`
	Input     string `gorm:"type:text" json:"input"`
	Output    string `gorm:"type:text" json:"output"`
	Hidden    bool   `gorm:"default:false" json:"hidden"`
}
