package postgres

import (
	"context"
	"errors"

	"github.com/yoockh/aicruiter/internal/models"
	"github.com/yoockh/aicruiter/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Create inserts u unless a row with the same email exists, then returns the stored row.
	Create(ctx context.Context, u *models.User) (*models.User, error)
}

type userRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	// two tabs signing in at once race on the unique email index
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoNothing: true,
		}).
		Create(u).Error
	if err != nil {
		return nil, err
	}
	return r.GetByEmail(ctx, u.Email)
}
