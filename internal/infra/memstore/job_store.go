package memstore

import (
	"context"
	"sync"
	"time"

	"miniprogram-ai-chat/internal/domain"
	"miniprogram-ai-chat/internal/domain/model"
	"miniprogram-ai-chat/internal/domain/ports/repository"
)

var _ repository.ChatJobStore = (*JobStore)(nil)

// JobStore keeps the job table in process memory. Eviction happens on the
// first Consume that observes a terminal state; a job that is never polled is
// never evicted (accepted leak for the in-memory variant).
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*model.ChatJob
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*model.ChatJob)}
}

func (s *JobStore) Create(_ context.Context, job *model.ChatJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return domain.ErrInvalidArgument
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *JobStore) Complete(_ context.Context, id string, result *model.ChatResult) error {
	return s.finish(id, func(j *model.ChatJob) {
		j.Status = model.ChatJobStatusSuccess
		j.Result = result
	})
}

func (s *JobStore) Fail(_ context.Context, id string, message string) error {
	return s.finish(id, func(j *model.ChatJob) {
		j.Status = model.ChatJobStatusFailed
		j.LastError = message
	})
}

func (s *JobStore) finish(id string, mutate func(*model.ChatJob)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, exists := s.jobs[id]
	if !exists {
		return domain.ErrNotFound
	}
	if job.Status.Terminal() {
		// terminal states are written exactly once
		return domain.ErrInvalidArgument
	}
	mutate(job)
	job.UpdatedAt = time.Now()
	return nil
}

func (s *JobStore) Consume(_ context.Context, id string) (*model.ChatJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, exists := s.jobs[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	snapshot := *job
	if job.Status.Terminal() {
		delete(s.jobs, id)
	}
	return &snapshot, nil
}

func (s *JobStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}
