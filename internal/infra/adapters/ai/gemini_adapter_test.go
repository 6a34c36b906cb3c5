package ai

import (
	"testing"

	"miniprogram-ai-chat/internal/domain/model"
)

func TestNormalizeModel(t *testing.T) {
	const def = "gemini-2.5-flash"
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty falls back to default", "", def},
		{"whitespace falls back to default", "   ", def},
		{"plain name unchanged", "gemini-2.5-pro", "gemini-2.5-pro"},
		{"vendor prefix stripped", "google/gemini-2.5-flash-image", "gemini-2.5-flash-image"},
		{"nested prefix keeps last segment", "models/google/gemini-2.5-pro", "gemini-2.5-pro"},
		{"variant suffix stripped", "gemini-2.5-flash:thinking", "gemini-2.5-flash"},
		{"prefix and suffix together", "google/gemini-2.5-flash:free", "gemini-2.5-flash"},
		{"bare separators fall back to default", "/:", def},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalizeModel(tc.in, def); got != tc.want {
				t.Fatalf("normalizeModel(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestToGenAIContents(t *testing.T) {
	units := []model.ContentUnit{
		{Role: "user", Parts: []model.Part{{Text: "hello"}}},
		{Role: "assistant", Parts: []model.Part{{Text: "hi there"}}},
		{Role: "user", Parts: []model.Part{
			{Data: []byte{0xFF, 0xD8}, MIME: "image/jpeg"},
			{Text: "what is this"},
		}},
	}

	out := toGenAIContents(units)
	if len(out) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(out))
	}
	if out[0].Role != "user" || out[1].Role != "model" || out[2].Role != "user" {
		t.Fatalf("unexpected roles: %s %s %s", out[0].Role, out[1].Role, out[2].Role)
	}
	if out[0].Parts[0].Text != "hello" {
		t.Fatalf("text part lost: %+v", out[0].Parts[0])
	}
	last := out[2]
	if len(last.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(last.Parts))
	}
	if last.Parts[0].InlineData == nil || last.Parts[0].InlineData.MIMEType != "image/jpeg" {
		t.Fatalf("image part not inline data: %+v", last.Parts[0])
	}
	if last.Parts[1].Text != "what is this" {
		t.Fatalf("trailing text lost: %+v", last.Parts[1])
	}
}
