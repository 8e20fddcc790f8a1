package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/codearena/arena-go-api/internal/models"
)

// ProblemQuery filters and paginates problem listings.
type ProblemQuery struct {
	Difficulty string
	Tag        string
	Page       int
	PageSize   int
}

// ProblemRepository exposes persistence helpers for problems and their test cases.
type ProblemRepository interface {
	Create(ctx context.Context, problem *models.Problem) error
	GetByID(ctx context.Context, id uint) (models.Problem, error)
	List(ctx context.Context, query ProblemQuery) ([]models.Problem, int64, error)
	ApplyJudgedCounters(ctx context.Context, id uint, accepted bool) error
}

// NewProblemRepository constructs a problem repository.
func NewProblemRepository(db *gorm.DB) ProblemRepository {
	return &problemRepository{db: db}
}

type problemRepository struct {
	db *gorm.DB
}

func (r *problemRepository) Create(ctx context.Context, problem *models.Problem) error {
	return r.db.WithContext(ctx).Create(problem).Error
}

func (r *problemRepository) GetByID(ctx context.Context, id uint) (models.Problem, error) {
	var problem models.Problem
	err := r.db.WithContext(ctx).
		Preload("TestCases", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&problem, id).Error
	if err != nil {
		return models.Problem{}, err
	}
	return problem, nil
}

func (r *problemRepository) List(ctx context.Context, query ProblemQuery) ([]models.Problem, int64, error) {
	tx := r.db.WithContext(ctx).Model(&models.Problem{})

	if query.Difficulty != "" {
		tx = tx.Where("difficulty = ?", query.Difficulty)
	}
	if query.Tag != "" {
		tx = tx.Where("tags LIKE ?", "%"+query.Tag+"%")
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

	var problems []models.Problem
	err := tx.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&problems).Error
	if err != nil {
		return nil, 0, err
	}

	return problems, total, nil
}

// ApplyJudgedCounters bumps the aggregate counters for one judged submission
// using atomic column expressions, then recomputes the acceptance rate from
// the stored counters inside the same transaction. Concurrent judges on the
// same problem therefore never lose increments.
func (r *problemRepository) ApplyJudgedCounters(ctx context.Context, id uint, accepted bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"submission_count": gorm.Expr("submission_count + 1"),
		}
		if accepted {
			updates["solved_count"] = gorm.Expr("solved_count + 1")
		}

		if err := tx.Model(&models.Problem{}).Where("id = ?", id).UpdateColumns(updates).Error; err != nil {
			return err
		}

		return tx.Model(&models.Problem{}).
			Where("id = ?", id).
			UpdateColumn("acceptance_rate", gorm.Expr(
				"CASE WHEN submission_count > 0 THEN solved_count * 100.0 / submission_count ELSE 0 END",
			)).Error
	})
}
