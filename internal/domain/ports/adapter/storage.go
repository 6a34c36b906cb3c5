package adapter

import "context"

// ObjectStorage persists a generated binary blob and returns a time-bounded
// public download URL for it.
type ObjectStorage interface {
	Upload(ctx context.Context, data []byte, mime string) (string, error)
}
