package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yoockh/aicruiter/internal/models"
	pgrepo "github.com/yoockh/aicruiter/internal/repositories/postgres"
	"github.com/yoockh/aicruiter/internal/utils"
)

type UserService interface {
	// FindOrCreate returns the profile for a signed-in identity, inserting it on first sight.
	FindOrCreate(ctx context.Context, id models.Identity) (*models.User, error)
}

type userService struct {
	users pgrepo.UserRepository
}

func NewUserService(users pgrepo.UserRepository) UserService {
	return &userService{users: users}
}

func (s *userService) FindOrCreate(ctx context.Context, id models.Identity) (*models.User, error) {
	const op = "UserService.FindOrCreate"

	email := strings.ToLower(strings.TrimSpace(id.Email))
	if email == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "identity has no email", nil)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeInternal, op, "failed to look up user", err)
	}

	row := &models.User{
		ID:        uuid.NewString(),
		Name:      id.Name,
		Email:     email,
		Picture:   id.Picture,
		CreatedAt: time.Now().UTC(),
	}
	if id.ID != "" {
		row.ID = id.ID
	}

	created, err := s.users.Create(ctx, row)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create user", err)
	}
	return created, nil
}
