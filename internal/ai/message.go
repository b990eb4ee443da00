package ai

import (
	"encoding/base64"
	"encoding/json"
)

// Part kinds carried by a multimodal message.
const (
	PartText  = "text"
	PartImage = "image"
)

// ContentPart is one piece of a multimodal user message.
type ContentPart struct {
	Type     string
	Text     string
	MIMEType string
	Data     []byte
}

// TextPart builds a text part.
func TextPart(s string) ContentPart { return ContentPart{Type: PartText, Text: s} }

// ImagePart builds an inline image part from raw bytes.
func ImagePart(mime string, data []byte) ContentPart {
	return ContentPart{Type: PartImage, MIMEType: mime, Data: data}
}

// Base64 returns the standard base64 encoding of an image part's bytes.
func (p ContentPart) Base64() string { return base64.StdEncoding.EncodeToString(p.Data) }

// DataURL renders an image part as a data: URL.
func (p ContentPart) DataURL() string { return "data:" + p.MIMEType + ";base64," + p.Base64() }

// Message is a chat turn. Plain turns use Content; multimodal turns set Parts,
// in which case Content is ignored on the wire.
type Message struct {
	Role    string        `json:"role"`
	Content string        `json:"content"`
	Parts   []ContentPart `json:"-"`
}

// UserMessage builds a user turn from text followed by optional extra parts.
func UserMessage(text string, parts ...ContentPart) Message {
	if len(parts) == 0 {
		return Message{Role: "user", Content: text}
	}
	all := make([]ContentPart, 0, len(parts)+1)
	all = append(all, TextPart(text))
	all = append(all, parts...)
	return Message{Role: "user", Content: text, Parts: all}
}

// Images returns the image parts of the message.
func (m Message) Images() []ContentPart {
	var out []ContentPart
	for _, p := range m.Parts {
		if p.Type == PartImage {
			out = append(out, p)
		}
	}
	return out
}

// Text concatenates the text of the message, preferring Parts when set.
func (m Message) Text() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var s string
	for _, p := range m.Parts {
		if p.Type == PartText {
			if s != "" {
				s += "\n"
			}
			s += p.Text
		}
	}
	return s
}

// MarshalJSON emits the OpenAI-compatible chat shape: a string content for
// plain turns, an array of text and image_url entries for multimodal ones.
func (m Message) MarshalJSON() ([]byte, error) {
	if len(m.Parts) == 0 {
		type plain struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}
		return json.Marshal(plain{Role: m.Role, Content: m.Content})
	}
	type imageURL struct {
		URL string `json:"url"`
	}
	type entry struct {
		Type     string    `json:"type"`
		Text     string    `json:"text,omitempty"`
		ImageURL *imageURL `json:"image_url,omitempty"`
	}
	entries := make([]entry, 0, len(m.Parts))
	for _, p := range m.Parts {
		switch p.Type {
		case PartImage:
			entries = append(entries, entry{Type: "image_url", ImageURL: &imageURL{URL: p.DataURL()}})
		default:
			entries = append(entries, entry{Type: "text", Text: p.Text})
		}
	}
	return json.Marshal(struct {
		Role    string  `json:"role"`
		Content []entry `json:"content"`
	}{Role: m.Role, Content: entries})
}
