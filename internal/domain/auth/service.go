package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/boostsocial/boost-api/internal/domain/profile"
	"github.com/boostsocial/boost-api/internal/pkg/jwt"
	"github.com/boostsocial/boost-api/internal/pkg/password"
)

// Profiles is the account storage auth needs.
type Profiles interface {
	Create(ctx context.Context, p *profile.Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*profile.Profile, error)
	GetByEmail(ctx context.Context, email string) (*profile.Profile, error)
}

// Service handles authentication business logic
type Service struct {
	profiles   Profiles
	jwtService *jwt.Service
}

// NewService creates auth service
func NewService(profiles Profiles, jwtService *jwt.Service) *Service {
	return &Service{profiles: profiles, jwtService: jwtService}
}

// Register creates new account with a zero balance
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)

	existing, _ := s.profiles.GetByEmail(ctx, req.Email)
	if existing != nil {
		return nil, ErrEmailAlreadyExists
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	p := &profile.Profile{
		ID:           uuid.New(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Balance:      decimal.Zero,
		Role:         profile.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		// lost a race with a concurrent signup
		if errors.Is(err, profile.ErrEmailAlreadyExists) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, err
	}

	return s.issue(p)
}

// Login authenticates user
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)

	p, err := s.profiles.GetByEmail(ctx, req.Email)
	if err != nil || p == nil {
		return nil, ErrInvalidCredentials
	}
	if !password.Verify(req.Password, p.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.issue(p)
}

// GetCurrentUser returns current user by ID
func (s *Service) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	p, err := s.profiles.GetByID(ctx, userID)
	if err != nil || p == nil {
		return nil, ErrUserNotFound
	}
	resp := NewUserResponse(p)
	return &resp, nil
}

func (s *Service) issue(p *profile.Profile) (*AuthResponse, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(p.ID, string(p.Role))
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		User: NewUserResponse(p),
		Tokens: TokensResponse{
			AccessToken: accessToken,
			TokenType:   "Bearer",
			ExpiresIn:   int(s.jwtService.AccessTTL().Seconds()),
		},
	}, nil
}

// Emails are matched case-insensitively.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
