package model

// ConversationTurn is one prior exchange as the client retains it. Turns that
// originally carried only an image come back with empty content; historical
// image bytes are not kept.
type ConversationTurn struct {
	Role    string `json:"role"` // "user" or "model"
	Content string `json:"content"`
}

// Part is a single typed element of a content unit: either inline text or an
// inline binary blob tagged with its MIME type.
type Part struct {
	Text string
	Data []byte
	MIME string
}

// ContentUnit is one turn's worth of structured input to the AI backend.
type ContentUnit struct {
	Role  string
	Parts []Part
}

// Attachment is one binary blob emitted by the AI backend.
type Attachment struct {
	Data []byte
	MIME string
}

// ChatRequest is the submission payload for one chat job.
type ChatRequest struct {
	Prompt      string             `json:"prompt"`
	ImageURL    string             `json:"imageUrl"`
	ImageBase64 string             `json:"imageBase64"`
	Model       string             `json:"model"`
	History     []ConversationTurn `json:"history"`
}

// Empty reports whether the request carries nothing to send to the backend.
func (r *ChatRequest) Empty() bool {
	return r.Prompt == "" && r.ImageURL == "" && r.ImageBase64 == "" && len(r.History) == 0
}
