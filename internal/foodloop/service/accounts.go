package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"foodloop/internal/foodloop/models"
	"foodloop/internal/foodloop/repository"
)

const minPasswordLen = 8

type RegisterInput struct {
	Name     string      `json:"name" yaml:"name"`
	Email    string      `json:"email" yaml:"email"`
	Password string      `json:"password" yaml:"password"`
	Role     models.Role `json:"role" yaml:"role"`
	Phone    string      `json:"phone" yaml:"phone"`
	Address  string      `json:"address" yaml:"address"`
	Lat      float64     `json:"lat" yaml:"lat"`
	Lng      float64     `json:"lng" yaml:"lng"`
}

// ============================================================
// Accounts
// ============================================================

type AccountService struct {
	repo     *repository.Repository
	sessions *SessionManager
	logger   *zap.Logger
	cost     int
}

// AccountOption настраивает AccountService.
type AccountOption func(*AccountService)

// WithBcryptCost задаёт стоимость bcrypt. Значения вне
// [bcrypt.MinCost, bcrypt.MaxCost] игнорируются.
func WithBcryptCost(cost int) AccountOption {
	return func(s *AccountService) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.cost = cost
		}
	}
}

func NewAccountService(repo *repository.Repository, sessions *SessionManager, logger *zap.Logger, opts ...AccountOption) *AccountService {
	s := &AccountService{repo: repo, sessions: sessions, logger: logger, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register создаёт пользователя публичной регистрацией. Администратора так
// создать нельзя.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if in.Role == models.RoleAdmin {
		return nil, fmt.Errorf("%w: admin accounts cannot self-register", ErrForbidden)
	}
	return s.CreateAccount(ctx, in)
}

// CreateAccount creates a user of any role (seed and admin tooling).
func (s *AccountService) CreateAccount(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)

	if in.Name == "" {
		return nil, invalid("name required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, invalid("invalid email %q", in.Email)
	}
	if len(in.Password) < minPasswordLen {
		return nil, invalid("password must be at least %d characters", minPasswordLen)
	}
	if !in.Role.Valid() {
		return nil, invalid("unknown role %q", in.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
		Phone:        in.Phone,
		Address:      in.Address,
		Lat:          in.Lat,
		Lng:          in.Lng,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// Login проверяет пароль и выдаёт токен.
func (s *AccountService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.sessions.Issue(u)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *AccountService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetUserByID(ctx, id)
}
