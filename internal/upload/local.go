package upload

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LocalUploader writes files under a root directory, one subdirectory per
// category, and returns URLs served by the /uploads/* static handler.
type LocalUploader struct {
	root   string
	logger zerolog.Logger
}

func NewLocalUploader(root string, logger zerolog.Logger) *LocalUploader {
	return &LocalUploader{
		root:   root,
		logger: logger.With().Str("component", "upload.local").Logger(),
	}
}

// Root returns the uploads root directory, used by the static file handler
// and the health check.
func (u *LocalUploader) Root() string { return u.root }

func (u *LocalUploader) Store(ctx context.Context, file File, category string) (Result, error) {
	if err := Validate(file); err != nil {
		return Result{}, err
	}
	if err := validCategory(category); err != nil {
		return Result{}, err
	}

	dir := filepath.Join(u.root, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create upload directory: %w", err)
	}

	filename := uniqueFilename(file.Name)
	destination := filepath.Join(dir, filename)

	out, err := os.Create(destination)
	if err != nil {
		return Result{}, fmt.Errorf("create file: %w", err)
	}
	defer out.Close()

	// LimitReader guards against callers that misreport Size.
	written, err := io.Copy(out, io.LimitReader(file.Reader, MaxFileSize+1))
	if err != nil {
		_ = os.Remove(destination)
		return Result{}, fmt.Errorf("write file: %w", err)
	}
	if written > MaxFileSize {
		_ = os.Remove(destination)
		return Result{}, ErrTooLarge
	}

	key := path.Join(category, filename)
	u.logger.Debug().Str("key", key).Int64("size", written).Msg("stored file")

	return Result{
		URL:          "/uploads/" + key,
		Key:          key,
		OriginalName: file.Name,
	}, nil
}

// Delete removes a stored file. Deleting a missing file reports false
// without an error, so repeated deletes are safe.
func (u *LocalUploader) Delete(ctx context.Context, key string) (bool, error) {
	cleaned := filepath.Clean(key)
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return false, fmt.Errorf("invalid upload key %q", key)
	}

	err := os.Remove(filepath.Join(u.root, cleaned))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("delete file: %w", err)
	}
	return true, nil
}

// uniqueFilename builds a collision-resistant name as
// basename-timestamp-random.ext, mirroring what clients already expect.
func uniqueFilename(original string) string {
	ext := filepath.Ext(original)
	base := strings.TrimSuffix(filepath.Base(original), ext)
	if base == "" {
		base = "file"
	}
	return fmt.Sprintf("%s-%d-%d%s", base, time.Now().UnixMilli(), rand.Int64N(1_000_000_000), ext)
}

func validCategory(category string) error {
	switch category {
	case CategoryEventBanners, CategoryProfileImages:
		return nil
	default:
		return fmt.Errorf("unknown upload category %q", category)
	}
}
