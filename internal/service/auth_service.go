package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ledgerbook/internal/core/domain"
	"ledgerbook/internal/core/ports"
	"ledgerbook/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	userRepo ports.UserRepository
	hashSvc  ports.HashService
	tokenSvc ports.TokenService
	log      zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	userRepo ports.UserRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		userRepo: userRepo,
		hashSvc:  hashSvc,
		tokenSvc: tokenSvc,
		log:      log,
	}
}

// normalizeIdentifier trims the identifier and lowercases emails.
func normalizeIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if domain.IsEmailIdentifier(identifier) {
		return strings.ToLower(identifier)
	}
	return identifier
}

// Register creates a user with an empty wallet and signs them in.
func (s *AuthServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*ports.AuthResult, error) {
	name := strings.TrimSpace(req.Name)
	identifier := normalizeIdentifier(req.Identifier)
	if name == "" || identifier == "" || req.Password == "" {
		return nil, apperror.Validation("name, email/phone and password are required")
	}

	existing, err := s.userRepo.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check identifier: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrIdentifierExists()
	}

	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:            uuid.New(),
		Name:          name,
		PasswordHash:  passwordHash,
		WalletBalance: decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if domain.IsEmailIdentifier(identifier) {
		user.Email = &identifier
	} else {
		user.Phone = &identifier
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, ports.ErrUniqueViolation) {
			return nil, apperror.ErrIdentifierExists()
		}
		return nil, apperror.InternalError(fmt.Errorf("create user: %w", err))
	}

	s.log.Info().Str("user_id", user.ID.String()).Msg("user registered")
	return s.issue(user)
}

// Login validates credentials and returns a JWT token.
func (s *AuthServiceImpl) Login(ctx context.Context, identifier, password string) (*ports.AuthResult, error) {
	identifier = normalizeIdentifier(identifier)
	if identifier == "" || password == "" {
		return nil, apperror.Validation("email/phone and password are required")
	}

	user, err := s.userRepo.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return nil, apperror.ErrInvalidCredentials()
	}

	return s.issue(user)
}

func (s *AuthServiceImpl) issue(user *domain.User) (*ports.AuthResult, error) {
	token, expiresAt, err := s.tokenSvc.Generate(user.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}
	return &ports.AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}
