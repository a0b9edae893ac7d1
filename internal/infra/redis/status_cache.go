package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-generation-gateway/internal/domain"
	"ai-generation-gateway/internal/domain/model"
	"ai-generation-gateway/internal/domain/ports/repository"

	"time"
)

var _ repository.StatusCache = (*StatusCache)(nil)

// StatusCache pins the last observation of a job, keyed by job id. Terminal
// entries make repeated polls idempotent and let a cancellation outlive a
// slower provider response.
type StatusCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewStatusCache(client RedisClient, ttl time.Duration) *StatusCache {
	return &StatusCache{client: client, ttl: ttl}
}

func key(jobID string) string { return "generation_job:" + jobID }

func (c *StatusCache) Put(ctx context.Context, job *model.GenerationJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(job.ID), data, c.ttl)
}

func (c *StatusCache) Get(ctx context.Context, jobID string) (*model.GenerationJob, error) {
	data, err := c.client.Get(ctx, key(jobID))
	if err != nil {
		if IsNil(err) {
			return nil, fmt.Errorf("%w: cached job %s", domain.ErrNotFound, jobID)
		}
		return nil, err
	}
	var job model.GenerationJob
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, err
	}
	return &job, nil
}
