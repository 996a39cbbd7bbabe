// Package request assembles the payload submitted to the try-on service from
// the current garment selection and photo.
package request

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fitly/tryon/pkg/fetch"
	"github.com/fitly/tryon/pkg/garment"
	"github.com/fitly/tryon/pkg/photo"
)

var (
	ErrMissingInput      = errors.New("missing input")
	ErrGarmentImageFetch = errors.New("garment image fetch failed")
)

// Image is one binary part of the payload.
type Image struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Payload is a complete try-on request.
type Payload struct {
	ClothType garment.ClothType
	Model     Image
	Garments  map[garment.Slot]Image
}

// Garment returns the image for slot, if present.
func (p *Payload) Garment(slot garment.Slot) (Image, bool) {
	img, ok := p.Garments[slot]
	return img, ok
}

// Builder turns a selection and a photo into a Payload.
type Builder struct {
	fetcher fetch.Fetcher
}

// NewBuilder creates a builder that loads garment images through f.
func NewBuilder(f fetch.Fetcher) *Builder {
	return &Builder{fetcher: f}
}

// CheckInput reports ErrMissingInput unless a photo and at least one garment are present.
func CheckInput(sel garment.Snapshot, p *photo.Photo) error {
	if p == nil || p.DataURL == "" {
		return fmt.Errorf("%w: please upload a photo first", ErrMissingInput)
	}
	if _, ok := sel.ClothType(); !ok {
		return fmt.Errorf("%w: please select at least one garment", ErrMissingInput)
	}
	return nil
}

// Build assembles the payload. Either every occupied slot's image is fetched
// or an error is returned; a partial payload is never produced.
func (b *Builder) Build(ctx context.Context, sel garment.Snapshot, p *photo.Photo) (*Payload, error) {
	if err := CheckInput(sel, p); err != nil {
		return nil, err
	}
	clothType, _ := sel.ClothType()

	modelData, mimeType, err := photo.DecodeDataURL(p.DataURL)
	if err != nil {
		return nil, err
	}

	payload := &Payload{
		ClothType: clothType,
		Model: Image{
			Data:        modelData,
			ContentType: mimeType,
			Filename:    "model" + extFor(mimeType),
		},
		Garments: make(map[garment.Slot]Image, 2),
	}

	slots := []struct {
		slot    garment.Slot
		product *garment.Product
	}{
		{garment.SlotUpper, sel.Upper},
		{garment.SlotLower, sel.Lower},
	}
	for _, s := range slots {
		if s.product == nil {
			continue
		}
		img, err := b.fetchGarment(ctx, s.slot, s.product)
		if err != nil {
			return nil, err
		}
		payload.Garments[s.slot] = img
	}

	slog.Info("tryon_payload_built",
		"cloth_type", payload.ClothType,
		"model_bytes", len(payload.Model.Data),
		"garments", len(payload.Garments))

	return payload, nil
}

func (b *Builder) fetchGarment(ctx context.Context, slot garment.Slot, p *garment.Product) (Image, error) {
	if strings.TrimSpace(p.ImageURL) == "" {
		return Image{}, fmt.Errorf("%w: product %s has no image", ErrGarmentImageFetch, p.ID)
	}

	data, contentType, err := b.fetcher.Fetch(ctx, p.ImageURL)
	if err != nil {
		slog.Error("garment_image_fetch_failed", "slot", slot, "product_id", p.ID, "url", p.ImageURL, "error", err)
		return Image{}, fmt.Errorf("%w: %s garment %s: %w", ErrGarmentImageFetch, slot, p.ID, err)
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: %s garment %s: empty image", ErrGarmentImageFetch, slot, p.ID)
	}
	if !strings.HasPrefix(contentType, "image/") {
		contentType = http.DetectContentType(data)
	}

	return Image{
		Data:        data,
		ContentType: contentType,
		Filename:    string(slot) + extFor(contentType),
	}, nil
}

func extFor(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	switch strings.TrimSpace(strings.ToLower(mediaType)) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
