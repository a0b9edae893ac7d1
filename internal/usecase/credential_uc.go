// File: internal/usecase/credential_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-generation-gateway/internal/domain"
	"ai-generation-gateway/internal/domain/model"
	"ai-generation-gateway/internal/domain/ports/repository"
	"ai-generation-gateway/internal/infra/logging"
)

// Decrypter is the slice of the encryption service the resolver needs.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// Encrypter is the write-side counterpart used by credential management.
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
}

// CredentialResolver maps a provider identifier to a usable plaintext secret.
// A persisted credential (newest first) wins over the configured environment
// fallback. Resolution failure is domain.ErrMissingCredential; a credential
// that exists but cannot be decrypted is a hard error, never a silent
// fallback.
type CredentialResolver interface {
	Resolve(ctx context.Context, service model.Provider) (string, error)
}

var _ CredentialResolver = (*credentialResolver)(nil)

type credentialResolver struct {
	repo      repository.CredentialRepository
	dec       Decrypter
	fallbacks map[model.Provider]string
	log       *zerolog.Logger
}

func NewCredentialResolver(repo repository.CredentialRepository, dec Decrypter, fallbacks map[model.Provider]string, logger *zerolog.Logger) *credentialResolver {
	l := logger.With().Str("component", "CredentialResolver").Logger()
	return &credentialResolver{repo: repo, dec: dec, fallbacks: fallbacks, log: &l}
}

func (r *credentialResolver) Resolve(ctx context.Context, service model.Provider) (string, error) {
	cred, err := r.repo.FindLatestByService(ctx, repository.NoTX, service)
	switch {
	case err == nil:
		secret, derr := r.dec.Decrypt(cred.EncryptedSecret)
		if derr != nil {
			// A stored-but-unreadable credential must not degrade into
			// the env fallback: the operator expects the override to win.
			return "", fmt.Errorf("decrypt credential %s/%s: %w", service, cred.ID, derr)
		}
		r.log.Debug().Str("service", string(service)).Str("secret", logging.Redact(secret)).Msg("resolved stored credential")
		return secret, nil
	case errors.Is(err, domain.ErrNotFound):
		// fall through to env fallback
	default:
		return "", fmt.Errorf("lookup credential for %s: %w", service, err)
	}

	if secret := r.fallbacks[service]; secret != "" {
		r.log.Debug().Str("service", string(service)).Str("secret", logging.Redact(secret)).Msg("resolved fallback credential")
		return secret, nil
	}
	return "", fmt.Errorf("%w: %s", domain.ErrMissingCredential, service)
}

// CredentialUseCase is the admin surface for managing stored credentials.
type CredentialUseCase interface {
	Create(ctx context.Context, service, name, secret, ownerID string) (*model.Credential, error)
	List(ctx context.Context) ([]*model.Credential, error)
	Delete(ctx context.Context, id string) error
}

var _ CredentialUseCase = (*credentialUC)(nil)

type credentialUC struct {
	repo repository.CredentialRepository
	enc  Encrypter
}

func NewCredentialUseCase(repo repository.CredentialRepository, enc Encrypter) *credentialUC {
	return &credentialUC{repo: repo, enc: enc}
}

func (u *credentialUC) Create(ctx context.Context, service, name, secret, ownerID string) (*model.Credential, error) {
	provider, ok := model.ParseProvider(service)
	if !ok {
		return nil, fmt.Errorf("%w: service %q", domain.ErrInvalidArgument, service)
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, fmt.Errorf("%w: empty secret", domain.ErrInvalidArgument)
	}
	encrypted, err := u.enc.Encrypt(secret)
	if err != nil {
		return nil, fmt.Errorf("encrypt secret: %w", err)
	}
	cred := &model.Credential{
		ID:              uuid.NewString(),
		Service:         provider,
		Name:            name,
		EncryptedSecret: encrypted,
		OwnerID:         ownerID,
		CreatedAt:       time.Now(),
	}
	if err := u.repo.Save(ctx, repository.NoTX, cred); err != nil {
		return nil, err
	}
	return cred, nil
}

func (u *credentialUC) List(ctx context.Context) ([]*model.Credential, error) {
	return u.repo.List(ctx, repository.NoTX)
}

func (u *credentialUC) Delete(ctx context.Context, id string) error {
	return u.repo.Delete(ctx, repository.NoTX, id)
}
