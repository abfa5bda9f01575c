// Package objectstore implements the object-storage collaborator used
// for image messages. The local implementation writes blobs under the
// configured upload directory and returns a public URL served by the
// HTTP layer.
package objectstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"messaging_go/internal/domain"
)

type LocalStore struct {
	dir     string
	baseURL string
}

var _ domain.ObjectStore = (*LocalStore)(nil)

// NewLocalStore creates the upload directory if needed. baseURL is the
// public prefix under which the HTTP layer serves stored files.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) Store(_ context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", domain.ErrInvalidInput
	}

	filename := uuid.NewString() + extensionFor(mimeType)
	if err := os.WriteFile(filepath.Join(s.dir, filename), data, 0o644); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	return s.baseURL + "/" + filename, nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
