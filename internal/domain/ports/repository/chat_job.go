package repository

import (
	"context"

	"miniprogram-ai-chat/internal/domain/model"
)

// ChatJobStore owns the job table. A job is created in processing state,
// moved exactly once to a terminal state by Complete or Fail, and evicted by
// the first Consume that observes it terminal.
type ChatJobStore interface {
	Create(ctx context.Context, job *model.ChatJob) error

	// Complete and Fail write the terminal state in a single atomic operation.
	Complete(ctx context.Context, id string, result *model.ChatResult) error
	Fail(ctx context.Context, id string, message string) error

	// Consume returns the job snapshot. A processing job is returned without
	// mutation; a terminal job is deleted in the same operation, so a second
	// Consume for the same ID yields domain.ErrNotFound.
	Consume(ctx context.Context, id string) (*model.ChatJob, error)

	// Delete removes a record regardless of state. Used to roll back a
	// submission whose pipeline could not be scheduled.
	Delete(ctx context.Context, id string) error
}
