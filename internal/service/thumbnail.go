package service

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	maxThumbnailSize         = 1 << 20
	maxThumbnailFileNameSize = 50
)

var (
	ErrThumbnailEncoding = errors.New("thumbnail_photo_file_name must carry a base64 encoded image")
	ErrThumbnailType     = errors.New("thumbnail must be a GIF, JPEG or PNG image")
	ErrThumbnailTooLarge = errors.New("thumbnail exceeds 1MB limit")
	ErrThumbnailFileName = errors.New("thumbnail_photo_file_name must be at most 50 characters")

	thumbnailExtensions = map[string]string{
		"image/gif":  ".gif",
		"image/jpeg": ".jpg",
		"image/png":  ".png",
	}
)

// DecodedThumbnail is an uploaded thumbnail after validation.
type DecodedThumbnail struct {
	Data        []byte
	ContentType string
	FileName    string
}

// DecodeThumbnail turns the base64 payload clients send in the file name field
// into image bytes and a generated file name. A data URI prefix is accepted.
func DecodeThumbnail(encoded string) (*DecodedThumbnail, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, nil
	}
	if strings.HasPrefix(encoded, "data:") {
		idx := strings.Index(encoded, ";base64,")
		if idx < 0 {
			return nil, ErrThumbnailEncoding
		}
		encoded = encoded[idx+len(";base64,"):]
	}
	if base64.StdEncoding.DecodedLen(len(encoded)) > maxThumbnailSize+3 {
		return nil, ErrThumbnailTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrThumbnailEncoding
	}
	if len(data) == 0 {
		return nil, ErrThumbnailEncoding
	}
	if len(data) > maxThumbnailSize {
		return nil, ErrThumbnailTooLarge
	}
	contentType, ok := ThumbnailContentType(data)
	if !ok {
		return nil, ErrThumbnailType
	}
	return &DecodedThumbnail{
		Data:        data,
		ContentType: contentType,
		FileName:    uuid.NewString() + thumbnailExtensions[contentType],
	}, nil
}

// ThumbnailContentType sniffs stored bytes and reports whether they are an allowed image.
func ThumbnailContentType(data []byte) (string, bool) {
	contentType := strings.ToLower(http.DetectContentType(data))
	if _, ok := thumbnailExtensions[contentType]; !ok {
		return contentType, false
	}
	return contentType, true
}

// ValidateStoredThumbnail checks a thumbnail sent as raw bytes on a full
// replace, where the file name is kept as given.
func ValidateStoredThumbnail(data []byte, fileName string) error {
	if len(fileName) > maxThumbnailFileNameSize {
		return ErrThumbnailFileName
	}
	if len(data) == 0 {
		return nil
	}
	if len(data) > maxThumbnailSize {
		return ErrThumbnailTooLarge
	}
	if _, ok := ThumbnailContentType(data); !ok {
		return ErrThumbnailType
	}
	return nil
}
