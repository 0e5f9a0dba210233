package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"wallet-pos-bridge/internal/core/ports"
	"wallet-pos-bridge/pkg/apperror"
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	customers ports.CustomerRepository
	hashSvc   ports.HashService
	tokenSvc  ports.TokenService
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	customers ports.CustomerRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		customers: customers,
		hashSvc:   hashSvc,
		tokenSvc:  tokenSvc,
	}
}

// Login validates customer credentials and returns a storefront JWT.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (string, time.Time, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	customer, err := s.customers.GetByEmail(ctx, email)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("find customer: %w", err))
	}
	// POS-created customers without a password set cannot log in.
	if customer == nil || customer.PasswordHash == "" {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	// Verify password
	valid, err := s.hashSvc.Verify(password, customer.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	if customer.WalletLocked {
		return "", time.Time{}, apperror.ErrAccountLocked()
	}

	return s.IssueToken(strconv.FormatInt(customer.ID, 10), ports.RoleStorefront)
}

// IssueToken signs a token for an arbitrary subject, e.g. an operator.
func (s *AuthServiceImpl) IssueToken(subject, role string) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, apperror.Validation("subject is required")
	}
	if role != ports.RoleAdmin && role != ports.RoleStorefront {
		return "", time.Time{}, apperror.Validation(fmt.Sprintf("unknown role %q", role))
	}

	token, expiry, err := s.tokenSvc.Generate(subject, role)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return token, expiry, nil
}
