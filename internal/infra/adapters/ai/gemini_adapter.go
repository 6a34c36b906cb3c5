package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/genai"

	"miniprogram-ai-chat/internal/domain/model"
	"miniprogram-ai-chat/internal/domain/ports/adapter"
	"miniprogram-ai-chat/internal/infra/metrics"
)

var _ adapter.AIServiceAdapter = (*GeminiAdapter)(nil)

type GeminiAdapter struct {
	client       *genai.Client
	defaultModel string
}

// NewGeminiAdapter creates a Gemini adapter using the official SDK.
func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, defaultModel string) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c, defaultModel: defaultModel}, nil
}

func (g *GeminiAdapter) ListModels(ctx context.Context) ([]string, error) {
	models := g.client.Models.All(ctx)
	var out []string
	for m := range models {
		if m.Name != "" {
			out = append(out, m.Name)
		}
	}
	if len(out) == 0 && g.defaultModel != "" {
		out = []string{g.defaultModel}
	}
	return out, nil
}

func (g *GeminiAdapter) Generate(ctx context.Context, modelName string, contents []model.ContentUnit) (string, []model.Attachment, error) {
	if len(contents) == 0 {
		return "", nil, errors.New("gemini: no contents")
	}
	name := normalizeModel(modelName, g.defaultModel)

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, name, toGenAIContents(contents), nil)
	latency := int(time.Since(start) / time.Millisecond)
	metrics.ObserveAICall("gemini", name, latency, err == nil)
	if err != nil {
		return "", nil, err
	}

	// Text parts are concatenated in order; every inline blob is captured as
	// an attachment, preserving encounter order. An empty outcome is not an
	// error at this layer.
	var text strings.Builder
	var attachments []model.Attachment
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				text.WriteString(part.Text)
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				attachments = append(attachments, model.Attachment{
					Data: part.InlineData.Data,
					MIME: part.InlineData.MIMEType,
				})
			}
		}
	}
	return text.String(), attachments, nil
}

func toGenAIContents(units []model.ContentUnit) []*genai.Content {
	out := make([]*genai.Content, 0, len(units))
	for _, u := range units {
		role := genai.RoleUser
		switch strings.ToLower(u.Role) {
		case "assistant", "model":
			role = genai.RoleModel
		}
		parts := make([]*genai.Part, 0, len(u.Parts))
		for _, p := range u.Parts {
			if len(p.Data) > 0 {
				parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: p.MIME, Data: p.Data}})
				continue
			}
			parts = append(parts, &genai.Part{Text: p.Text})
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}
	return out
}

// normalizeModel strips a provider namespace ("google/gemini-x" -> "gemini-x")
// and any trailing ":variant" suffix, falling back to the default when empty.
func normalizeModel(name, def string) string {
	m := strings.TrimSpace(name)
	if m == "" {
		return def
	}
	if i := strings.LastIndexByte(m, '/'); i >= 0 {
		m = m[i+1:]
	}
	if i := strings.IndexByte(m, ':'); i >= 0 {
		m = m[:i]
	}
	if m == "" {
		return def
	}
	return m
}
