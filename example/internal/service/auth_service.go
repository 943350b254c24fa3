package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/klass-lk/crudboot"
	"github.com/klass-lk/crudboot/example/internal/model"
	"github.com/klass-lk/crudboot/example/internal/repository"
	"github.com/klass-lk/crudboot/security"
	"go.uber.org/zap"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type AuthService struct {
	crudboot.BaseService
	users   *repository.UserRepository
	encoder security.PasswordEncoder
}

func NewAuthService(users *repository.UserRepository, encoder security.PasswordEncoder, logger *zap.Logger) *AuthService {
	return &AuthService{
		BaseService: crudboot.BaseService{Logger: logger, DB: users.DB()},
		users:       users,
		encoder:     encoder,
	}
}

// EnsureUser creates the user unless one with the same name exists.
func (s *AuthService) EnsureUser(ctx context.Context, username, password, role string) (int64, error) {
	existing, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.ID, nil
	}

	hash, err := s.encoder.GetPasswordHash(password)
	if err != nil {
		return 0, err
	}
	id, err := s.users.Insert(ctx, &model.User{Username: username, PasswordHash: hash, Role: role})
	if err != nil {
		return 0, err
	}
	s.Logger.Info("user created", zap.String("username", username), zap.String("role", role))
	return id, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (Tokens, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return Tokens{}, err
	}
	if user == nil || !s.encoder.IsMatching(user.PasswordHash, password) {
		s.Logger.Warn("login rejected", zap.String("username", username))
		return Tokens{}, crudboot.ErrUnauthorized.New(ErrInvalidCredentials.Error())
	}
	return s.issue(user)
}

// Refresh exchanges a refresh token for a new token pair of the same user.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	token, err := crudboot.ParseRefreshToken(refreshToken)
	if err != nil || !token.Valid {
		return Tokens{}, crudboot.ErrUnauthorized.New("refresh token is invalid")
	}
	claims, err := crudboot.ExtractClaims(token)
	if err != nil {
		return Tokens{}, crudboot.ErrUnauthorized.New("refresh token is invalid")
	}
	id, err := crudboot.ParseKey[int64](crudboot.ExtractUserId(claims))
	if err != nil {
		return Tokens{}, crudboot.ErrUnauthorized.New("refresh token is invalid")
	}

	user, err := s.users.Get(ctx, id)
	if err != nil {
		return Tokens{}, err
	}
	if user == nil {
		return Tokens{}, crudboot.ErrUnauthorized.New("user no longer exists")
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *model.User) (Tokens, error) {
	access, refresh, err := crudboot.GenerateTokens(strconv.FormatInt(user.ID, 10), user.Role)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{AccessToken: access, RefreshToken: refresh}, nil
}
