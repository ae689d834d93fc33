package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	apperrors "webcrud/internal/errors"
	"webcrud/internal/model"
	"webcrud/internal/repository"
)

// UserService exposes domain operations.
type UserService interface {
	CreateUser(ctx context.Context, input model.UserInput) (*model.User, error)
	GetUser(ctx context.Context, id uint) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, id uint, update model.UserUpdate) (*model.User, error)
	DeleteUser(ctx context.Context, id uint) error
}

type userService struct {
	repo     repository.UserRepository
	validate *validator.Validate
	log      logrus.FieldLogger
}

// NewUserService builds a UserService on top of the repository.
func NewUserService(repo repository.UserRepository, validate *validator.Validate, log logrus.FieldLogger) UserService {
	return &userService{repo: repo, validate: validate, log: log}
}

func (s *userService) CreateUser(ctx context.Context, input model.UserInput) (*model.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)

	if err := s.validate.StructCtx(ctx, input); err != nil {
		return nil, ValidationErrorFrom(err)
	}

	user := &model.User{Name: input.Name, Phone: input.Phone}
	if input.Email != "" {
		email := input.Email
		user.Email = &email
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.log.WithField("user_id", user.ID).Info("user created")
	return user, nil
}

func (s *userService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *userService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.List(ctx)
}

// UpdateUser writes only the fields present in update.
func (s *userService) UpdateUser(ctx context.Context, id uint, update model.UserUpdate) (*model.User, error) {
	if update.Empty() {
		return nil, apperrors.NewValidationError("body", "at least one of name, email or phone is required")
	}

	fields, err := s.updateFields(ctx, update)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user_id": id, "fields": len(fields)}).Info("user updated")
	return user, nil
}

func (s *userService) updateFields(ctx context.Context, update model.UserUpdate) (map[string]interface{}, error) {
	fields := make(map[string]interface{}, 3)
	verr := &apperrors.ValidationError{Fields: map[string]string{}}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if err := s.validate.VarCtx(ctx, name, "required,max=255"); err != nil {
			verr.Fields["name"] = varMessage(err)
		}
		fields["name"] = name
	}
	if update.Email != nil {
		email := strings.TrimSpace(*update.Email)
		if email == "" {
			fields["email"] = nil
		} else {
			if err := s.validate.VarCtx(ctx, email, "email,max=255"); err != nil {
				verr.Fields["email"] = varMessage(err)
			}
			fields["email"] = email
		}
	}
	if update.Phone != nil {
		phone := strings.TrimSpace(*update.Phone)
		if err := s.validate.VarCtx(ctx, phone, "max=50"); err != nil {
			verr.Fields["phone"] = varMessage(err)
		}
		fields["phone"] = phone
	}

	if len(verr.Fields) > 0 {
		return nil, verr
	}
	return fields, nil
}

func varMessage(err error) string {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		return fieldMessage(verrs[0])
	}
	return err.Error()
}

func (s *userService) DeleteUser(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	s.log.WithField("user_id", id).Info("user deleted")
	return nil
}
