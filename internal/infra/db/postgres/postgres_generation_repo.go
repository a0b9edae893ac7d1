package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-generation-gateway/internal/domain/model"
	"ai-generation-gateway/internal/domain/ports/repository"
)

var _ repository.GenerationRepository = (*generationRepo)(nil)

type generationRepo struct {
	pool *pgxpool.Pool
}

func NewGenerationRepo(pool *pgxpool.Pool) *generationRepo {
	return &generationRepo{pool: pool}
}

func (r *generationRepo) Save(ctx context.Context, qx repository.Tx, rec *model.GenerationRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.UpdatedAt = time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}

	const q = `
INSERT INTO generation_records
  (id, user_id, job_id, provider, model, kind, status, result_url, error_message, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status,
  result_url = EXCLUDED.result_url,
  error_message = EXCLUDED.error_message,
  updated_at = EXCLUDED.updated_at;`

	_, err := execSQL(ctx, r.pool, qx, q,
		rec.ID, rec.UserID, rec.JobID, string(rec.Provider), rec.Model, string(rec.Kind),
		string(rec.Status), rec.ResultURL, rec.ErrorMessage, rec.CreatedAt, rec.UpdatedAt)
	return err
}

func (r *generationRepo) ListRecent(ctx context.Context, qx repository.Tx, since time.Time, limit int) ([]*model.GenerationRecord, error) {
	const q = `
SELECT id, user_id, job_id, provider, model, kind, status, result_url, error_message, created_at, updated_at
  FROM generation_records
 WHERE created_at > $1
 ORDER BY created_at DESC
 LIMIT $2;`

	rows, err := pickRows(ctx, r.pool, qx, q, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (r *generationRepo) ListByUser(ctx context.Context, qx repository.Tx, userID string, limit int) ([]*model.GenerationRecord, error) {
	const q = `
SELECT id, user_id, job_id, provider, model, kind, status, result_url, error_message, created_at, updated_at
  FROM generation_records
 WHERE user_id = $1
 ORDER BY created_at DESC
 LIMIT $2;`

	rows, err := pickRows(ctx, r.pool, qx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (r *generationRepo) UpdateStatus(ctx context.Context, qx repository.Tx, id string, status model.JobStatus, resultURL, errorMessage string) error {
	const q = `
UPDATE generation_records
   SET status = $2, result_url = $3, error_message = $4, updated_at = NOW()
 WHERE id = $1;`

	_, err := execSQL(ctx, r.pool, qx, q, id, string(status), resultURL, errorMessage)
	return err
}

func (r *generationRepo) FailStale(ctx context.Context, qx repository.Tx, cutoff time.Time, reason string) (int64, error) {
	const q = `
UPDATE generation_records
   SET status = 'failed', error_message = $2, updated_at = NOW()
 WHERE status IN ('pending', 'processing')
   AND updated_at < $1;`

	tag, err := execSQL(ctx, r.pool, qx, q, cutoff, reason)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanRecords(rows pgx.Rows) ([]*model.GenerationRecord, error) {
	var out []*model.GenerationRecord
	for rows.Next() {
		var rec model.GenerationRecord
		var provider, kind, status string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.JobID, &provider, &rec.Model, &kind,
			&status, &rec.ResultURL, &rec.ErrorMessage, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.Provider = model.Provider(provider)
		rec.Kind = model.JobKind(kind)
		rec.Status = model.JobStatus(status)
		out = append(out, &rec)
	}
	return out, rows.Err()
}
