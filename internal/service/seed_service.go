package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	apperrors "webcrud/internal/errors"
	"webcrud/internal/model"
	"webcrud/internal/repository"
)

// SeedResult counts what a seed run did.
type SeedResult struct {
	Created int
	Skipped int
	Invalid int
}

// SeedService loads users in bulk, skipping emails that already exist.
type SeedService struct {
	repo  repository.UserRepository
	users UserService
	log   logrus.FieldLogger
}

// NewSeedService creates a SeedService.
func NewSeedService(repo repository.UserRepository, users UserService, log logrus.FieldLogger) *SeedService {
	return &SeedService{repo: repo, users: users, log: log}
}

// SeedUsers creates every input whose email is not stored yet. Inputs that
// fail validation are counted and skipped; any other error stops the run.
func (s *SeedService) SeedUsers(ctx context.Context, inputs []model.UserInput) (SeedResult, error) {
	var res SeedResult
	for i, input := range inputs {
		if email := strings.TrimSpace(input.Email); email != "" {
			existing, err := s.repo.FindByEmail(ctx, email)
			if err != nil && !errors.Is(err, apperrors.ErrUserNotFound) {
				return res, fmt.Errorf("check user %d: %w", i, err)
			}
			if existing != nil {
				res.Skipped++
				continue
			}
		}

		user, err := s.users.CreateUser(ctx, input)
		switch {
		case errors.Is(err, apperrors.ErrValidation):
			s.log.WithError(err).WithField("index", i).Warn("skipping invalid seed user")
			res.Invalid++
		case errors.Is(err, apperrors.ErrDuplicateUser):
			res.Skipped++
		case err != nil:
			return res, fmt.Errorf("create user %d: %w", i, err)
		default:
			s.log.WithField("user_id", user.ID).Debug("seeded user")
			res.Created++
		}
	}
	return res, nil
}
