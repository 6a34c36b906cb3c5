package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"miniprogram-ai-chat/internal/domain"
	"miniprogram-ai-chat/internal/domain/model"
	"miniprogram-ai-chat/internal/domain/ports/repository"
)

var _ repository.ChatJobStore = (*JobStore)(nil)

// JobStore keeps the job table in redis with a TTL, so results of jobs that
// are never polled expire instead of leaking. Read-once eviction semantics
// are the same as the in-memory store.
type JobStore struct {
	client RedisClient
	ttl    time.Duration
}

func NewJobStore(client RedisClient, ttl time.Duration) *JobStore {
	return &JobStore{client: client, ttl: ttl}
}

func key(id string) string { return "chat_job:" + id }

func (s *JobStore) Create(ctx context.Context, job *model.ChatJob) error {
	return s.put(ctx, job)
}

func (s *JobStore) Complete(ctx context.Context, id string, result *model.ChatResult) error {
	return s.finish(ctx, id, func(j *model.ChatJob) {
		j.Status = model.ChatJobStatusSuccess
		j.Result = result
	})
}

func (s *JobStore) Fail(ctx context.Context, id string, message string) error {
	return s.finish(ctx, id, func(j *model.ChatJob) {
		j.Status = model.ChatJobStatusFailed
		j.LastError = message
	})
}

func (s *JobStore) finish(ctx context.Context, id string, mutate func(*model.ChatJob)) error {
	job, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return domain.ErrInvalidArgument
	}
	mutate(job)
	job.UpdatedAt = time.Now()
	return s.put(ctx, job)
}

func (s *JobStore) Consume(ctx context.Context, id string) (*model.ChatJob, error) {
	job, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		if err := s.client.Del(ctx, key(id)); err != nil {
			return nil, err
		}
	}
	return job, nil
}

func (s *JobStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, key(id))
}

func (s *JobStore) put(ctx context.Context, job *model.ChatJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key(job.ID), data, s.ttl)
}

func (s *JobStore) get(ctx context.Context, id string) (*model.ChatJob, error) {
	data, err := s.client.Get(ctx, key(id))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var job model.ChatJob
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, err
	}
	return &job, nil
}
