// Package upload abstracts "store this image, return a URL" over two
// interchangeable backends: local disk and S3-compatible object storage.
// Both apply the same validation so controllers are backend-agnostic.
package upload

import (
	"context"
	"errors"
	"io"
	"strings"
)

// MaxFileSize is the upload size cap shared by both backends.
const MaxFileSize int64 = 5 << 20 // 5MB

// Categories used by the controllers. Local storage maps them to
// subdirectories; S3 uses them as key prefixes.
const (
	CategoryEventBanners  = "event-banners"
	CategoryProfileImages = "profile-images"
)

var (
	ErrNotAnImage = errors.New("only image files are allowed")
	ErrTooLarge   = errors.New("file exceeds the 5MB size limit")
)

// File is an incoming upload, decoupled from multipart internals so the
// backends and tests do not depend on net/http.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// Result describes a stored asset. Key is what Delete expects.
type Result struct {
	URL          string `json:"url"`
	Key          string `json:"key"`
	OriginalName string `json:"originalName"`
}

// Uploader is the storage contract. Delete is idempotent for the local
// backend (false, nil when the object is already gone); the remote backend
// surfaces API failures as errors instead.
type Uploader interface {
	Store(ctx context.Context, file File, category string) (Result, error)
	Delete(ctx context.Context, key string) (bool, error)
}

// Validate enforces the shared rules before any backend I/O: the declared
// MIME type must be an image and the size must not exceed MaxFileSize.
func Validate(file File) error {
	if !strings.HasPrefix(file.ContentType, "image/") {
		return ErrNotAnImage
	}
	if file.Size > MaxFileSize {
		return ErrTooLarge
	}
	return nil
}
