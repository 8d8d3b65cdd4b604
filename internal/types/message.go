// Package types provides the wire types exchanged with callers and the upstream text API.
package types

import "encoding/json"

// Role constants for message roles
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is a single entry of the upstream message list.
// Content can be a string or an array of ContentPart for multimodal input.
type Message struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

// Content represents message content that can be a string or array of parts.
type Content struct {
	Text  string        // Simple string content
	Parts []ContentPart // Multimodal content parts
}

// MarshalJSON outputs a string if Text is set, an array if Parts is set.
func (c Content) MarshalJSON() ([]byte, error) {
	if len(c.Parts) > 0 {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON accepts both string and array formats.
func (c *Content) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		c.Text = text
		c.Parts = nil
		return nil
	}

	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err == nil {
		c.Parts = parts
		c.Text = ""
		return nil
	}

	return nil // Allow null/empty content
}

// String returns the text content, concatenating text parts if multimodal.
func (c Content) String() string {
	if c.Text != "" {
		return c.Text
	}
	var result string
	for _, part := range c.Parts {
		if part.Type == ContentTypeText {
			result += part.Text
		}
	}
	return result
}

// ContentPart represents a single part of multimodal content.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// Content type constants
const (
	ContentTypeText     = "text"
	ContentTypeImageURL = "image_url"
)

// ImageURL represents an image reference in multimodal content.
type ImageURL struct {
	URL string `json:"url"`
}

// NewTextMessage creates a simple text message.
func NewTextMessage(role, content string) Message {
	return Message{
		Role:    role,
		Content: Content{Text: content},
	}
}

// NewImagesMessage creates a message with a text part followed by one
// image_url part per image URL, in order.
func NewImagesMessage(role, text string, imageURLs ...string) Message {
	parts := make([]ContentPart, 0, len(imageURLs)+1)
	parts = append(parts, ContentPart{Type: ContentTypeText, Text: text})
	for _, u := range imageURLs {
		parts = append(parts, ContentPart{Type: ContentTypeImageURL, ImageURL: &ImageURL{URL: u}})
	}
	return Message{
		Role:    role,
		Content: Content{Parts: parts},
	}
}
