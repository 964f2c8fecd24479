package intake

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"nanobanana/internal/domain"
)

const (
	DefaultMaxBytes    int64 = 10 << 20
	DefaultPreviewEdge       = 1024
)

type Options struct {
	MaxBytes    int64
	PreviewEdge int
}

// Intake validates candidate uploads and prepares their local preview.
type Intake struct {
	maxBytes    int64
	previewEdge int
}

func New(opts Options) *Intake {
	in := &Intake{maxBytes: opts.MaxBytes, previewEdge: opts.PreviewEdge}
	if in.maxBytes <= 0 {
		in.maxBytes = DefaultMaxBytes
	}
	if in.previewEdge <= 0 {
		in.previewEdge = DefaultPreviewEdge
	}
	return in
}

// MaxBytes reports the upload size limit.
func (in *Intake) MaxBytes() int64 { return in.maxBytes }

// IsImageType reports whether a declared content type is acceptable.
func IsImageType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// Accept reads a candidate file. Only declared image/* types are accepted;
// the bytes themselves are not sniffed, matching what the browser reports.
func (in *Intake) Accept(ctx context.Context, name, contentType string, r io.Reader) (*domain.SelectedImage, error) {
	if !IsImageType(contentType) {
		return nil, domain.ErrNotImage
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(r, in.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("intake: read upload: %w", err)
	}
	if int64(len(data)) > in.maxBytes {
		return nil, domain.ErrImageTooLarge
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	img := &domain.SelectedImage{
		Name:        filepath.Base(strings.TrimSpace(name)),
		ContentType: contentType,
		Data:        data,
	}
	if img.Name == "." || img.Name == "/" || img.Name == "" {
		img.Name = "image." + domain.ExtensionForMIME(contentType)
	}
	img.Preview, img.Width, img.Height = in.preview(data, contentType)
	return img, nil
}

// preview builds the inline preview. Images the decoders cannot read fall
// back to a data URL of the original bytes.
func (in *Intake) preview(data []byte, contentType string) (string, int, int) {
	raw := dataURL(contentType, data)
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return raw, 0, 0
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= in.previewEdge && h <= in.previewEdge {
		return raw, w, h
	}
	thumb := imaging.Fit(src, in.previewEdge, in.previewEdge, imaging.Lanczos)
	var buf bytes.Buffer
	format, mimeType := imaging.JPEG, "image/jpeg"
	if contentType == "image/png" || contentType == "image/gif" {
		format, mimeType = imaging.PNG, "image/png"
	}
	if err := imaging.Encode(&buf, thumb, format, imaging.JPEGQuality(85)); err != nil {
		return raw, w, h
	}
	return dataURL(mimeType, buf.Bytes()), w, h
}

func dataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
