package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/codearena/arena-go-api/internal/models"
)

// UserRepository exposes persistence helpers for users and their statistics.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (models.User, error)
	AwardFirstAccepted(ctx context.Context, id uint, points int64) error
}

// NewUserRepository constructs a user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

// AwardFirstAccepted grants the per-problem award with atomic increments so
// concurrent accepted verdicts for different problems cannot lose updates.
func (r *userRepository) AwardFirstAccepted(ctx context.Context, id uint, points int64) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"problems_solved": gorm.Expr("problems_solved + 1"),
			"points":          gorm.Expr("points + ?", points),
		}).Error
}
