package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/mandate-ai/mandate/internal/common"
	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
)

// Store is a filesystem-backed blob store. Blob names are generated by
// the pipeline and already sanitized, but paths are still validated to
// stay inside the blob directory.
type Store struct {
	dir           string
	publicBaseURL string
	logger        arbor.ILogger
}

// NewStore creates a blob store rooted at the configured directory
func NewStore(config *common.BlobConfig, logger arbor.ILogger) (interfaces.BlobStore, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("blob directory is not configured")
	}
	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}

	return &Store{
		dir:           config.Dir,
		publicBaseURL: strings.TrimRight(config.PublicBaseURL, "/"),
		logger:        logger,
	}, nil
}

func (s *Store) path(name string) (string, error) {
	cleaned := filepath.Clean(name)
	if cleaned != name || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return "", models.NewError(models.KindInputInvalid, fmt.Sprintf("invalid blob name: %s", name))
	}
	return filepath.Join(s.dir, cleaned), nil
}

// Upload writes blob bytes. Re-uploading the same name overwrites,
// which keeps re-scrapes of an updated document idempotent.
func (s *Store) Upload(ctx context.Context, data []byte, name string) (string, error) {
	path, err := s.path(name)
	if err != nil {
		return "", err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize blob: %w", err)
	}

	s.logger.Debug().
		Str("blob", name).
		Int("bytes", len(data)).
		Msg("Blob stored")

	return s.PublicURL(name), nil
}

// Download reads blob bytes by name
func (s *Store) Download(ctx context.Context, name string) ([]byte, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, models.NewError(models.KindNotFound, fmt.Sprintf("blob not found: %s", name))
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

// Exists reports whether the named blob is present
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	path, err := s.path(name)
	if err != nil {
		return false, err
	}

	_, statErr := os.Stat(path)
	if statErr == nil {
		return true, nil
	}
	if os.IsNotExist(statErr) {
		return false, nil
	}
	return false, statErr
}

// Delete removes a blob. Deleting an absent blob is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// PublicURL returns the URL the blob is served at
func (s *Store) PublicURL(name string) string {
	return s.publicBaseURL + "/" + name
}
