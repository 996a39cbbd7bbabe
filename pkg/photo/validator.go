package photo

import (
	"fmt"
	"log/slog"
	"mime"
	"strings"
)

// DefaultMaxSize is the largest photo accepted, in bytes.
const DefaultMaxSize int64 = 10 * 1024 * 1024

// Validator checks photo uploads before any bytes are read.
type Validator struct {
	maxSize int64
}

// NewValidator creates a validator. A non-positive maxSize selects DefaultMaxSize.
func NewValidator(maxSize int64) *Validator {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	slog.Info("photo_validator_init", "max_size_mb", maxSize/1024/1024)
	return &Validator{maxSize: maxSize}
}

// MaxSize returns the configured limit in bytes.
func (v *Validator) MaxSize() int64 {
	return v.maxSize
}

// ValidateSize checks the photo does not exceed the size limit.
func (v *Validator) ValidateSize(size int64) error {
	if size > v.maxSize {
		slog.Warn("photo_size_exceeded",
			"size_bytes", size,
			"max_size_bytes", v.maxSize)
		return fmt.Errorf("%w: %d bytes exceeds max %d", ErrPhotoTooLarge, size, v.maxSize)
	}
	if size < 0 {
		return fmt.Errorf("%w: negative size %d", ErrPhotoRead, size)
	}
	return nil
}

// ValidateType checks the declared content type names an image.
func (v *Validator) ValidateType(contentType string) error {
	mediaType, err := normalizeType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		slog.Warn("photo_type_rejected", "content_type", contentType)
		return fmt.Errorf("%w: %q", ErrInvalidPhotoType, contentType)
	}
	return nil
}

// normalizeType strips parameters and lowercases a content type.
func normalizeType(contentType string) (string, error) {
	if strings.TrimSpace(contentType) == "" {
		return "", fmt.Errorf("empty content type")
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", err
	}
	return strings.ToLower(mediaType), nil
}
