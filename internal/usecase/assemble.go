package usecase

import (
	"strings"

	"miniprogram-ai-chat/internal/domain"
	"miniprogram-ai-chat/internal/domain/model"
)

// historyImagePlaceholder stands in for history turns that originally carried
// only an image; the client never retains historical image bytes.
const historyImagePlaceholder = "[image]"

// currentImageMIME is fixed regardless of the actual encoding of the inbound
// image. Carried over from the observed backend behavior; sniffing the real
// format would be the safer contract.
const currentImageMIME = "image/jpeg"

// assembleContents maps history turns plus the current text/image into the
// ordered content units the AI backend expects: history first, then one user
// unit with the image part (when present) before the text part.
func assembleContents(history []model.ConversationTurn, text string, image []byte) ([]model.ContentUnit, error) {
	units := make([]model.ContentUnit, 0, len(history)+1)
	for _, turn := range history {
		role := "model"
		if strings.ToLower(turn.Role) == "user" {
			role = "user"
		}
		content := turn.Content
		if strings.TrimSpace(content) == "" {
			content = historyImagePlaceholder
		}
		units = append(units, model.ContentUnit{
			Role:  role,
			Parts: []model.Part{{Text: content}},
		})
	}

	var parts []model.Part
	if len(image) > 0 {
		parts = append(parts, model.Part{Data: image, MIME: currentImageMIME})
	}
	if text != "" {
		parts = append(parts, model.Part{Text: text})
	}
	if len(parts) > 0 {
		units = append(units, model.ContentUnit{Role: "user", Parts: parts})
	}

	if len(units) == 0 {
		return nil, domain.ErrEmptyInput
	}
	return units, nil
}
