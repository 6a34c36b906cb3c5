package model

import "time"

type ChatJobStatus string

const (
	ChatJobStatusProcessing ChatJobStatus = "processing"
	ChatJobStatusSuccess    ChatJobStatus = "success"
	ChatJobStatusFailed     ChatJobStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s ChatJobStatus) Terminal() bool {
	return s == ChatJobStatusSuccess || s == ChatJobStatusFailed
}

// ChatResult is the outcome of a successful job: the assistant reply and,
// when the model produced an image that could be persisted, its download URL.
type ChatResult struct {
	Reply    string `json:"reply"`
	ImageURL string `json:"image_url,omitempty"`
}

// ChatJob tracks one asynchronous chat request. Exactly one of Result/LastError
// is populated once the status is terminal; a processing job has neither.
type ChatJob struct {
	ID        string        `json:"id"`
	Status    ChatJobStatus `json:"status"`
	Result    *ChatResult   `json:"result,omitempty"`
	LastError string        `json:"last_error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func NewChatJob(id string) *ChatJob {
	now := time.Now()
	return &ChatJob{
		ID:        id,
		Status:    ChatJobStatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
