// Package photo validates a user-supplied photo and encodes it as a data URL
// that can be stored, replayed and decoded again for transmission.
package photo

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrPhotoTooLarge    = errors.New("photo too large")
	ErrInvalidPhotoType = errors.New("invalid photo type")
	ErrPhotoRead        = errors.New("photo read failed")
)

// Photo is an accepted, encoded user photo.
type Photo struct {
	MIMEType string `json:"mime_type" bson:"mime_type"`
	Size     int64  `json:"size" bson:"size"`
	Width    int    `json:"width,omitempty" bson:"width,omitempty"`
	Height   int    `json:"height,omitempty" bson:"height,omitempty"`
	DataURL  string `json:"data_url" bson:"data_url"`
}

// Bytes decodes the data URL back to the raw image.
func (p *Photo) Bytes() ([]byte, error) {
	data, _, err := DecodeDataURL(p.DataURL)
	return data, err
}

// Upload describes a photo offered by the user, before it is read.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// UploadFromFileHeader adapts a multipart form file.
func UploadFromFileHeader(fh *multipart.FileHeader) Upload {
	return Upload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// UploadFromPath adapts a local file. The content type comes from the file
// extension, falling back to sniffing the first bytes.
func UploadFromPath(path string) (Upload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Upload{}, fmt.Errorf("%w: %w", ErrPhotoRead, err)
	}
	if info.IsDir() {
		return Upload{}, fmt.Errorf("%w: %s is a directory", ErrPhotoRead, path)
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		contentType, err = sniff(path)
		if err != nil {
			return Upload{}, fmt.Errorf("%w: %w", ErrPhotoRead, err)
		}
	}

	return Upload{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Size:        info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

func sniff(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

// EncodeDataURL renders data as a base64 data URL.
func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL parses a base64 data URL into its bytes and media type.
func DecodeDataURL(s string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, "", fmt.Errorf("%w: not a data URL", ErrPhotoRead)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: malformed data URL", ErrPhotoRead)
	}
	mediaType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return nil, "", fmt.Errorf("%w: data URL is not base64 encoded", ErrPhotoRead)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrPhotoRead, err)
	}
	return data, mediaType, nil
}
