package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// SelectedImage is the upload currently attached to a session.
type SelectedImage struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Preview     string `json:"preview"`
}

// Size returns the payload length in bytes.
func (i *SelectedImage) Size() int {
	if i == nil {
		return 0
	}
	return len(i.Data)
}

// TransformRequest is what the transform client sends to the backend.
type TransformRequest struct {
	Image        *SelectedImage
	Style        string
	Prompt       string
	CustomPrompt bool
}

// TransformResult is an immutable successful transform outcome.
type TransformResult struct {
	Image        string    `json:"image"`
	MIMEType     string    `json:"mime_type"`
	Style        string    `json:"style,omitempty"`
	Prompt       string    `json:"prompt,omitempty"`
	CustomPrompt bool      `json:"custom_prompt"`
	Message      string    `json:"message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// DataURL renders the result as an inline image source.
func (r *TransformResult) DataURL() string {
	if r == nil {
		return ""
	}
	return "data:" + r.MIMEType + ";base64," + r.Image
}

// Bytes decodes the base64 payload.
func (r *TransformResult) Bytes() ([]byte, error) {
	if r == nil {
		return nil, ErrNoResult
	}
	data, err := base64.StdEncoding.DecodeString(r.Image)
	if err != nil {
		return nil, fmt.Errorf("decode transformed image: %w", err)
	}
	return data, nil
}

// Label is the caption shown above the transformed image.
func (r *TransformResult) Label() string {
	if r == nil {
		return ""
	}
	if r.CustomPrompt {
		return "Custom Prompt"
	}
	return r.Style
}

// Filename derives the download name from the save time.
func (r *TransformResult) Filename(now time.Time) string {
	ext := "png"
	if r != nil {
		ext = ExtensionForMIME(r.MIMEType)
	}
	return fmt.Sprintf("transformed-%d.%s", now.UnixMilli(), ext)
}

// ExtensionForMIME maps an image MIME type to a file extension, falling back
// to png.
func ExtensionForMIME(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	switch mimeType {
	case "image/jpeg", "image/jpg", "image/pjpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	case "image/bmp":
		return "bmp"
	case "image/tiff":
		return "tiff"
	default:
		return "png"
	}
}
