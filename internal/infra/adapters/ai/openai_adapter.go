package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"miniprogram-ai-chat/internal/domain/model"
	"miniprogram-ai-chat/internal/domain/ports/adapter"
	"miniprogram-ai-chat/internal/infra/metrics"
)

var _ adapter.AIServiceAdapter = (*OpenAIAdapter)(nil)

// OpenAIAdapter is the text-only fallback against any OpenAI-compatible chat
// completions endpoint. Inline image input is passed as a data URL; the
// completions response carries no binary output, so Generate never returns
// attachments.
type OpenAIAdapter struct {
	client       openai.Client
	defaultModel string
}

func NewOpenAIAdapter(apiKey, baseURL, defaultModel string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai: empty api key")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIAdapter{
		client:       openai.NewClient(opts...),
		defaultModel: defaultModel,
	}, nil
}

func (o *OpenAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	return []string{o.defaultModel}, nil
}

func (o *OpenAIAdapter) Generate(ctx context.Context, modelName string, contents []model.ContentUnit) (string, []model.Attachment, error) {
	if len(contents) == 0 {
		return "", nil, errors.New("openai: no contents")
	}
	name := normalizeModel(modelName, o.defaultModel)

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(contents))
	for _, u := range contents {
		messages = append(messages, toOpenAIMessage(u))
	}

	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(name),
		Messages: messages,
	})
	latency := int(time.Since(start) / time.Millisecond)
	metrics.ObserveAICall("openai", name, latency, err == nil)
	if err != nil {
		return "", nil, err
	}
	if len(resp.Choices) == 0 {
		return "", nil, nil
	}
	return resp.Choices[0].Message.Content, nil, nil
}

func toOpenAIMessage(u model.ContentUnit) openai.ChatCompletionMessageParamUnion {
	if strings.ToLower(u.Role) == "model" || strings.ToLower(u.Role) == "assistant" {
		var sb strings.Builder
		for _, p := range u.Parts {
			sb.WriteString(p.Text)
		}
		return openai.AssistantMessage(sb.String())
	}
	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(u.Parts))
	for _, p := range u.Parts {
		if len(p.Data) > 0 {
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: toDataURL(p.MIME, p.Data),
			}))
			continue
		}
		parts = append(parts, openai.TextContentPart(p.Text))
	}
	return openai.UserMessage(parts)
}

func toDataURL(mime string, b []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(b))
}
