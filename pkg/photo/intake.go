package photo

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Intake accepts photos and publishes the latest successfully decoded one.
type Intake struct {
	validator *Validator

	mu      sync.Mutex
	current *Photo
	gen     uint64
}

// NewIntake creates an intake with no current photo.
func NewIntake(validator *Validator) *Intake {
	return &Intake{validator: validator}
}

// Accept validates u and starts decoding it in the background.
//
// Size and type violations are returned immediately and leave the current
// photo untouched. Otherwise the returned channel delivers exactly one value,
// nil once the photo has become current or the decoding error, and is then
// closed. The previous photo stays current until decoding succeeds. A later
// Accept, Set or Clear supersedes a decode still in flight.
func (in *Intake) Accept(u Upload) (<-chan error, error) {
	if err := in.validator.ValidateSize(u.Size); err != nil {
		return nil, err
	}
	if err := in.validator.ValidateType(u.ContentType); err != nil {
		return nil, err
	}
	if u.Open == nil {
		return nil, fmt.Errorf("%w: upload has no content", ErrPhotoRead)
	}

	in.mu.Lock()
	in.gen++
	gen := in.gen
	in.mu.Unlock()

	slog.Info("photo_decode_started", "name", u.Name, "content_type", u.ContentType, "size_bytes", u.Size)

	done := make(chan error, 1)
	go func() {
		defer close(done)

		p, err := in.decode(u)
		if err != nil {
			slog.Error("photo_decode_failed", "name", u.Name, "error", err)
			done <- err
			return
		}

		in.mu.Lock()
		superseded := gen != in.gen
		if !superseded {
			in.current = p
		}
		in.mu.Unlock()

		if superseded {
			slog.Info("photo_decode_superseded", "name", u.Name)
		} else {
			slog.Info("photo_accepted", "name", u.Name, "mime_type", p.MIMEType, "width", p.Width, "height", p.Height)
		}
		done <- nil
	}()

	return done, nil
}

func (in *Intake) decode(u Upload) (*Photo, error) {
	rc, err := u.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPhotoRead, err)
	}
	defer rc.Close()

	limit := in.validator.MaxSize()
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPhotoRead, err)
	}
	if err := in.validator.ValidateSize(int64(len(data))); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrPhotoRead)
	}

	mimeType, err := normalizeType(u.ContentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPhotoType, err)
	}

	p := &Photo{
		MIMEType: mimeType,
		Size:     int64(len(data)),
		DataURL:  EncodeDataURL(mimeType, data),
	}
	// Dimensions are informational; formats without a registered decoder
	// (HEIC, AVIF) are passed through as-is.
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		p.Width, p.Height = cfg.Width, cfg.Height
	} else {
		slog.Debug("photo_dimensions_unknown", "name", u.Name, "mime_type", mimeType, "error", err)
	}
	return p, nil
}

// Current returns a copy of the current photo, or nil.
func (in *Intake) Current() *Photo {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.current == nil {
		return nil
	}
	p := *in.current
	return &p
}

// Set makes p current, superseding any decode in flight.
func (in *Intake) Set(p *Photo) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.gen++
	if p == nil {
		in.current = nil
		return
	}
	c := *p
	in.current = &c
}

// Clear drops the current photo.
func (in *Intake) Clear() {
	in.Set(nil)
}
