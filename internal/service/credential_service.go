package service

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"wallet-pos-bridge/internal/core/domain"
	"wallet-pos-bridge/internal/core/ports"
	"wallet-pos-bridge/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	apiKeyPrefix     = "pos_"
	apiKeyBytes      = 24
	signingKeyBytes  = 32
	credentialsActor = "credential_service"
)

type credentialService struct {
	repo     ports.CredentialRepository
	enc      ports.EncryptionService
	sig      ports.SignatureService
	provider ports.RemoteLedgerProvider
	fallback domain.Credentials
	now      func() time.Time
	log      zerolog.Logger
}

// NewCredentialService creates the credential manager. fallback is the pair
// from static configuration, used only until a pair has been generated.
// provider may be nil when no remote client is cached (e.g. the CLI).
func NewCredentialService(
	repo ports.CredentialRepository,
	enc ports.EncryptionService,
	sig ports.SignatureService,
	provider ports.RemoteLedgerProvider,
	fallback domain.Credentials,
	log zerolog.Logger,
) ports.CredentialManager {
	return &credentialService{
		repo:     repo,
		enc:      enc,
		sig:      sig,
		provider: provider,
		fallback: fallback,
		now:      time.Now,
		log:      log.With().Str("component", credentialsActor).Logger(),
	}
}

func (s *credentialService) Generate(ctx context.Context) (*domain.Credentials, error) {
	apiKey, err := generateKey(apiKeyPrefix, apiKeyBytes)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate api key: %w", err))
	}
	secret, err := generateKey("", signingKeyBytes)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate signing secret: %w", err))
	}

	secretEnc, err := s.enc.Encrypt(secret)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(err)
	}

	generatedAt := s.now().UTC()
	if err := s.repo.Save(ctx, &ports.StoredCredentials{
		APIKey:           apiKey,
		SigningSecretEnc: secretEnc,
		GeneratedAt:      generatedAt,
	}); err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	s.invalidate()
	s.log.Info().Time("generated_at", generatedAt).Msg("credentials rotated")

	return &domain.Credentials{
		APIKey:        apiKey,
		SigningSecret: secret,
		GeneratedAt:   generatedAt,
	}, nil
}

func (s *credentialService) Revoke(ctx context.Context) error {
	stored, err := s.repo.Get(ctx)
	if err != nil {
		return apperror.ErrDatabaseError(err)
	}

	revokedAt := s.now().UTC()
	revoked := &ports.StoredCredentials{RevokedAt: &revokedAt}
	if stored != nil {
		revoked.GeneratedAt = stored.GeneratedAt
	}

	if err := s.repo.Save(ctx, revoked); err != nil {
		return apperror.ErrDatabaseError(err)
	}

	s.invalidate()
	s.log.Warn().Time("revoked_at", revokedAt).Msg("credentials revoked")
	return nil
}

func (s *credentialService) Current(ctx context.Context) (*domain.Credentials, error) {
	stored, err := s.repo.Get(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	if stored == nil {
		if s.fallback.APIKey == "" && s.fallback.SigningSecret == "" {
			return nil, nil
		}
		fb := s.fallback
		return &fb, nil
	}

	creds := &domain.Credentials{
		APIKey:      stored.APIKey,
		GeneratedAt: stored.GeneratedAt,
		RevokedAt:   stored.RevokedAt,
	}
	if stored.SigningSecretEnc != "" {
		secret, err := s.enc.Decrypt(stored.SigningSecretEnc)
		if err != nil {
			return nil, apperror.ErrEncryptionFailure(err)
		}
		creds.SigningSecret = secret
	}
	return creds, nil
}

func (s *credentialService) ValidateKey(ctx context.Context, provided string) (bool, error) {
	if provided == "" {
		return false, nil
	}

	creds, err := s.Current(ctx)
	if err != nil {
		return false, err
	}
	if creds == nil || creds.RevokedAt != nil || creds.APIKey == "" {
		return false, apperror.ErrNotConfigured()
	}

	return hmac.Equal([]byte(creds.APIKey), []byte(provided)), nil
}

func (s *credentialService) Sign(secret string, payload []byte) string {
	return s.sig.Sign(secret, payload)
}

func (s *credentialService) Verify(secret string, payload []byte, signature string) bool {
	return s.sig.Verify(secret, payload, signature)
}

func (s *credentialService) invalidate() {
	if s.provider != nil {
		s.provider.Invalidate()
	}
}

func generateKey(prefix string, length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return prefix + hex.EncodeToString(b), nil
}
