package repository

import (
	"context"

	"ai-generation-gateway/internal/domain/model"
)

// CredentialRepository stores encrypted provider secrets.
type CredentialRepository interface {
	Save(ctx context.Context, qx Tx, c *model.Credential) error

	// FindLatestByService returns the most recently created credential for
	// the service, or domain.ErrNotFound.
	FindLatestByService(ctx context.Context, qx Tx, service model.Provider) (*model.Credential, error)

	List(ctx context.Context, qx Tx) ([]*model.Credential, error)
	Delete(ctx context.Context, qx Tx, id string) error
}
