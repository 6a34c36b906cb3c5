package adapter

import (
	"context"

	"miniprogram-ai-chat/internal/domain/model"
)

// AIServiceAdapter is the port for generative model invocation.
type AIServiceAdapter interface {
	ListModels(ctx context.Context) ([]string, error)

	// Generate sends the ordered content units to the backend and returns the
	// concatenated reply text plus any binary outputs in encounter order.
	// An empty reply with no attachments is not an error at this layer.
	Generate(ctx context.Context, model string, contents []model.ContentUnit) (string, []model.Attachment, error)
}
