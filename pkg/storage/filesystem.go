package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage persists processed files on disk under a base directory and
// serves them through signed download URLs. Used for development and
// self-hosted deployments where no object store is available.
type LocalStorage struct {
	baseDir string
	signer  *SignedURLSigner
	urlBase string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
// urlBase is the route prefix serving downloads (e.g. "/api/v1/files").
func NewLocalStorage(baseDir string, signer *SignedURLSigner, urlBase string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./processed"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{
		baseDir: baseDir,
		signer:  signer,
		urlBase: strings.TrimRight(urlBase, "/"),
	}, nil
}

// Upload writes the bytes under the base dir and returns a signed download URL.
func (s *LocalStorage) Upload(_ context.Context, name string, data []byte, _ string) (string, error) {
	path := s.resolve(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare storage directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write output file: %w", err)
	}
	if s.signer == nil {
		return fmt.Sprintf("%s/%s", s.urlBase, name), nil
	}
	token, _, err := s.signer.Generate(name)
	if err != nil {
		return "", fmt.Errorf("sign download url: %w", err)
	}
	return fmt.Sprintf("%s/%s?token=%s", s.urlBase, name, token), nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(name string) (*os.File, error) {
	file, err := os.Open(s.resolve(name))
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(name string) error {
	if err := os.Remove(s.resolve(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete output file: %w", err)
	}
	return nil
}

// CleanupOlderThan removes files older than the provided TTL and returns deleted names.
func (s *LocalStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-ttl)
	deleted := make([]string, 0)
	err := filepath.WalkDir(s.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			rel = path
		}
		deleted = append(deleted, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cleanup storage: %w", err)
	}
	return deleted, nil
}

func (s *LocalStorage) resolve(name string) string {
	// Reject traversal outside the base dir.
	cleaned := filepath.Clean("/" + name)
	return filepath.Join(s.baseDir, cleaned)
}
