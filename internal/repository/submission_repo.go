package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/codearena/arena-go-api/internal/models"
)

// SubmissionQuery filters and paginates submission listings.
type SubmissionQuery struct {
	UserID    uint
	ProblemID uint
	Status    models.SubmissionStatus
	Page      int
	PageSize  int
}

// SubmissionRepository exposes persistence helpers for submissions. The two
// state transitions of the judging lifecycle are guarded at the SQL level so
// that duplicate scheduling of the same submission cannot judge it twice:
// ClaimForJudging moves Pending to Judging, FinalizeVerdict moves Judging to a
// terminal verdict, and each reports whether this caller won the transition.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	Delete(ctx context.Context, id uint) error
	ClaimForJudging(ctx context.Context, id uint) (bool, error)
	FinalizeVerdict(ctx context.Context, submission *models.Submission) (bool, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	List(ctx context.Context, query SubmissionQuery) ([]models.Submission, int64, error)
	HasPriorAccepted(ctx context.Context, userID, problemID, excludeID uint) (bool, error)
	ListStuck(ctx context.Context, status models.SubmissionStatus, before time.Time) ([]models.Submission, error)
}

// NewSubmissionRepository constructs a submission repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

type submissionRepository struct {
	db *gorm.DB
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Submission{}, id).Error
}

// ClaimForJudging atomically moves a Pending submission to Judging. Exactly
// one of any number of concurrent claimants observes true; the rest see the
// row already claimed and must not judge.
func (r *submissionRepository) ClaimForJudging(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ? AND status = ?", id, models.SubmissionStatusPending).
		Updates(map[string]interface{}{
			"status":             models.SubmissionStatusJudging,
			"judging_started_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FinalizeVerdict persists the terminal verdict, but only while the row is
// still Judging. A false return means someone else already finalised it (for
// example the watchdog) and this verdict must be discarded, never applied to
// statistics. TotalTests is fixed at intake and deliberately not touched here.
func (r *submissionRepository) FinalizeVerdict(ctx context.Context, submission *models.Submission) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ? AND status = ?", submission.ID, models.SubmissionStatusJudging).
		Updates(map[string]interface{}{
			"status":       submission.Status,
			"verdict":      submission.Verdict,
			"tests_passed": submission.TestsPassed,
			"runtime_ms":   submission.RuntimeMs,
			"memory_kb":    submission.MemoryKB,
			"judged_at":    submission.JudgedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) List(ctx context.Context, query SubmissionQuery) ([]models.Submission, int64, error) {
	tx := r.db.WithContext(ctx).Model(&models.Submission{})

	if query.UserID != 0 {
		tx = tx.Where("user_id = ?", query.UserID)
	}
	if query.ProblemID != 0 {
		tx = tx.Where("problem_id = ?", query.ProblemID)
	}
	if query.Status != "" {
		tx = tx.Where("status = ?", query.Status)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	var submissions []models.Submission
	err := tx.Order("submitted_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&submissions).Error
	if err != nil {
		return nil, 0, err
	}

	return submissions, total, nil
}

func (r *submissionRepository) HasPriorAccepted(ctx context.Context, userID, problemID, excludeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("user_id = ? AND problem_id = ? AND status = ? AND id <> ?",
			userID, problemID, models.SubmissionStatusAccepted, excludeID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListStuck returns submissions that have sat in the given state past the
// cutoff. Judging rows age from the moment they were claimed, not from
// submission, so a long queue wait alone can never make an actively judged
// submission look stuck.
func (r *submissionRepository) ListStuck(ctx context.Context, status models.SubmissionStatus, before time.Time) ([]models.Submission, error) {
	ageColumn := "submitted_at"
	if status == models.SubmissionStatusJudging {
		ageColumn = "COALESCE(judging_started_at, submitted_at)"
	}

	var submissions []models.Submission
	err := r.db.WithContext(ctx).
		Where("status = ? AND "+ageColumn+" < ?", status, before).
		Order("submitted_at ASC").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}
