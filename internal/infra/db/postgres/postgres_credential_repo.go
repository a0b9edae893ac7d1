package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-generation-gateway/internal/domain"
	"ai-generation-gateway/internal/domain/model"
	"ai-generation-gateway/internal/domain/ports/repository"
)

var _ repository.CredentialRepository = (*credentialRepo)(nil)

type credentialRepo struct {
	pool *pgxpool.Pool
}

func NewCredentialRepo(pool *pgxpool.Pool) *credentialRepo {
	return &credentialRepo{pool: pool}
}

func (r *credentialRepo) Save(ctx context.Context, qx repository.Tx, c *model.Credential) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	const q = `
INSERT INTO credentials (id, service, name, encrypted_secret, owner_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6);`

	_, err := execSQL(ctx, r.pool, qx, q,
		c.ID, string(c.Service), c.Name, c.EncryptedSecret, c.OwnerID, c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *credentialRepo) FindLatestByService(ctx context.Context, qx repository.Tx, service model.Provider) (*model.Credential, error) {
	const q = `
SELECT id, service, name, encrypted_secret, owner_id, created_at
  FROM credentials
 WHERE service = $1
 ORDER BY created_at DESC
 LIMIT 1;`

	row, err := pickRow(ctx, r.pool, qx, q, string(service))
	if err != nil {
		return nil, err
	}
	var c model.Credential
	var svc string
	if err := row.Scan(&c.ID, &svc, &c.Name, &c.EncryptedSecret, &c.OwnerID, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	c.Service = model.Provider(svc)
	return &c, nil
}

func (r *credentialRepo) List(ctx context.Context, qx repository.Tx) ([]*model.Credential, error) {
	const q = `
SELECT id, service, name, encrypted_secret, owner_id, created_at
  FROM credentials
 ORDER BY created_at DESC;`

	rows, err := pickRows(ctx, r.pool, qx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Credential
	for rows.Next() {
		var c model.Credential
		var svc string
		if err := rows.Scan(&c.ID, &svc, &c.Name, &c.EncryptedSecret, &c.OwnerID, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Service = model.Provider(svc)
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *credentialRepo) Delete(ctx context.Context, qx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, qx, `DELETE FROM credentials WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
