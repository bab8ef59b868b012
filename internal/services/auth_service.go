package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"legaltrainer/internal/models"
	"legaltrainer/internal/repositories"
	"legaltrainer/internal/utils"
)

type Claims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

type AuthService interface {
	HashPassword(password string) (string, error)
	CheckPassword(hash, password string) bool
	IssueTokens(ctx context.Context, user *models.User) (*models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	// ParseAccessToken validates an access token and returns its user id.
	ParseAccessToken(token string) (int, error)
}

type AuthOptions struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

type authService struct {
	users      repositories.UserRepository
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewAuthService(users repositories.UserRepository, opts AuthOptions) AuthService {
	s := &authService{
		users:      users,
		secret:     opts.Secret,
		accessTTL:  opts.AccessTTL,
		refreshTTL: opts.RefreshTTL,
		now:        opts.Now,
	}
	if s.accessTTL <= 0 {
		s.accessTTL = 15 * time.Minute
	}
	if s.refreshTTL <= 0 {
		s.refreshTTL = 30 * 24 * time.Hour
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *authService) HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt generate: %w", err)
	}
	return string(b), nil
}

func (s *authService) CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *authService) IssueTokens(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	access, err := s.signAccess(user.ID)
	if err != nil {
		return nil, err
	}
	rt, err := utils.NewRefreshToken(32)
	if err != nil {
		return nil, fmt.Errorf("new refresh token: %w", err)
	}
	if err := s.users.UpdateRefresh(ctx, user.ID, rt, s.now().Add(s.refreshTTL)); err != nil {
		return nil, storageErr("store refresh token", err)
	}
	return &models.TokenPair{AccessToken: access, RefreshToken: rt}, nil
}

// Refresh rotates a refresh token and returns a fresh pair.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	old := strings.TrimSpace(refreshToken)
	if old == "" {
		return nil, ErrUnauthorized
	}
	user, err := s.users.GetByRefreshToken(ctx, old)
	if err != nil {
		return nil, storageErr("refresh", err)
	}
	if user == nil || user.RefreshExpiresAt == nil || user.RefreshRevoked {
		return nil, ErrUnauthorized
	}
	if s.now().After(*user.RefreshExpiresAt) {
		log.Printf("[auth][refresh] expired refresh token user_id=%d", user.ID)
		return nil, ErrUnauthorized
	}

	newRT, err := utils.NewRefreshToken(32)
	if err != nil {
		return nil, fmt.Errorf("new refresh token: %w", err)
	}
	rotated, err := s.users.RotateRefresh(ctx, old, newRT, s.now().Add(s.refreshTTL))
	if err != nil {
		return nil, storageErr("rotate refresh", err)
	}
	if rotated == nil {
		// lost a race with another refresh of the same token
		return nil, ErrUnauthorized
	}
	access, err := s.signAccess(rotated.ID)
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{AccessToken: access, RefreshToken: newRT}, nil
}

func (s *authService) signAccess(userID int) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

func (s *authService) ParseAccessToken(token string) (int, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		// only HMAC
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid || claims.UserID <= 0 {
		return 0, ErrUnauthorized
	}
	return claims.UserID, nil
}
