package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("job not found")
	ErrEmptyInput      = errors.New("empty input: no prompt, image or history")
	ErrAIUnavailable   = errors.New("ai backend not configured")
	ErrInvocation      = errors.New("ai invocation failed")
	ErrSlotRequest     = errors.New("upload slot request failed")
	ErrUpload          = errors.New("file upload failed")
	ErrNoUsableContent = errors.New("ai returned no usable content")
	ErrInvalidArgument = errors.New("invalid argument")
)
