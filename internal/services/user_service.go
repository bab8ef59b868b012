package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"legaltrainer/internal/models"
	"legaltrainer/internal/repositories"
)

const minPasswordLen = 6

type UserService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
}

type userService struct {
	repo         repositories.UserRepository
	emailService EmailService
	authService  AuthService
}

func NewUserService(repo repositories.UserRepository, emailService EmailService, authService AuthService) UserService {
	return &userService{
		repo:         repo,
		emailService: emailService,
		authService:  authService,
	}
}

func (s *userService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, invalid("username", "is required")
	}
	if len(strings.TrimSpace(req.Password)) < minPasswordLen {
		return nil, invalid("password", "must be at least 6 characters")
	}

	hash, err := s.authService.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:     &username,
		DisplayName:  username,
		PasswordHash: &hash,
	}
	if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" {
		user.Email = &email
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, storageErr("register", err)
	}

	if s.emailService != nil && user.Email != nil {
		if err := s.emailService.SendWelcomeEmail(*user.Email, user.DisplayName); err != nil {
			// warn but do not fail registration
			log.Printf("[auth][register] warning: welcome email to %s failed: %v", *user.Email, err)
		}
	}
	log.Printf("[auth][register] user_id=%d username=%q", user.ID, username)
	return user, nil
}

func (s *userService) Login(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, storageErr("login", err)
	}
	if user == nil || user.PasswordHash == nil || *user.PasswordHash == "" {
		log.Printf("[auth][login] unknown user or no password username=%q", username)
		return nil, ErrUnauthorized
	}
	if !s.authService.CheckPassword(*user.PasswordHash, password) {
		log.Printf("[auth][login] bcrypt mismatch user_id=%d", user.ID)
		return nil, ErrUnauthorized
	}
	return user, nil
}

func (s *userService) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("get user", err)
	}
	return u, nil
}
