package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/examly/exam-go-api/internal/auth"
	"github.com/examly/exam-go-api/internal/dto"
	"github.com/examly/exam-go-api/internal/models"
	"github.com/examly/exam-go-api/internal/repository"
)

// ErrEmailTaken indicates a registration with an already used email.
var ErrEmailTaken = errors.New("email already registered")

// ErrInvalidCredentials indicates a failed login or an unusable token.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService handles registration, login and the token lifecycle.
type AuthService interface {
	Register(ctx context.Context, payload dto.RegisterRequest) (dto.TokenPairResponse, error)
	Login(ctx context.Context, payload dto.LoginRequest) (dto.TokenPairResponse, error)
	Refresh(ctx context.Context, payload dto.RefreshRequest) (dto.TokenPairResponse, error)
	Logout(ctx context.Context, accessToken string) error
	Profile(ctx context.Context, userID uint) (dto.UserResponse, error)
}

type authService struct {
	users     repository.UserRepository
	issuer    *auth.TokenIssuer
	revoker   auth.TokenRevoker
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAuthService constructs the authentication service.
func NewAuthService(
	users repository.UserRepository,
	issuer *auth.TokenIssuer,
	revoker auth.TokenRevoker,
	validate *validator.Validate,
	logger zerolog.Logger,
) AuthService {
	return &authService{
		users:     users,
		issuer:    issuer,
		revoker:   revoker,
		validator: validate,
		logger:    logger.With().Str("component", "auth_service").Logger(),
	}
}

// Register creates a student account. Teacher accounts are provisioned out of
// band.
func (s *authService) Register(ctx context.Context, payload dto.RegisterRequest) (dto.TokenPairResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TokenPairResponse{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		return dto.TokenPairResponse{}, err
	}

	user := models.User{
		Name:         strings.TrimSpace(payload.Name),
		Email:        strings.ToLower(strings.TrimSpace(payload.Email)),
		PasswordHash: string(hash),
		Role:         models.RoleStudent,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.TokenPairResponse{}, ErrEmailTaken
		}
		return dto.TokenPairResponse{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("user registered")
	return s.issuePair(user)
}

func (s *authService) Login(ctx context.Context, payload dto.LoginRequest) (dto.TokenPairResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TokenPairResponse{}, err
	}

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(payload.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TokenPairResponse{}, ErrInvalidCredentials
		}
		return dto.TokenPairResponse{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)); err != nil {
		return dto.TokenPairResponse{}, ErrInvalidCredentials
	}

	return s.issuePair(user)
}

func (s *authService) Refresh(ctx context.Context, payload dto.RefreshRequest) (dto.TokenPairResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TokenPairResponse{}, err
	}

	userID, err := s.issuer.ParseRefresh(payload.RefreshToken)
	if err != nil {
		return dto.TokenPairResponse{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TokenPairResponse{}, ErrInvalidCredentials
		}
		return dto.TokenPairResponse{}, err
	}

	return s.issuePair(user)
}

// Logout revokes the presented access token for its remaining lifetime.
func (s *authService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.issuer.ParseAccess(accessToken)
	if err != nil {
		return ErrInvalidCredentials
	}

	ttl := time.Hour
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}

	return s.revoker.Revoke(ctx, claims.ID, ttl)
}

func (s *authService) Profile(ctx context.Context, userID uint) (dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrInvalidCredentials
		}
		return dto.UserResponse{}, err
	}

	return dto.NewUserResponse(user), nil
}

func (s *authService) issuePair(user models.User) (dto.TokenPairResponse, error) {
	access, err := s.issuer.IssueAccess(user.ID, user.Name, user.Email, user.Role)
	if err != nil {
		return dto.TokenPairResponse{}, err
	}
	refresh, err := s.issuer.IssueRefresh(user.ID)
	if err != nil {
		return dto.TokenPairResponse{}, err
	}

	return dto.TokenPairResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         dto.NewUserResponse(user),
	}, nil
}
