// Package storage keeps uploaded receipt files on the local filesystem under
// opaque storage keys. Receipt content is never inspected, only stored.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReceiptStore defines receipt file storage operations
type ReceiptStore interface {
	// Save streams the file to disk and returns its storage key
	Save(r io.Reader, originalName string) (string, error)

	// Open opens the stored file for reading
	Open(key string) (io.ReadCloser, error)

	// Remove deletes the stored file
	Remove(key string) error
}

// LocalReceiptStore implements ReceiptStore on the local filesystem.
// Keys look like ab/abcdef...-1234.pdf: two-character fan-out directory,
// uuid, original extension.
type LocalReceiptStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalReceiptStore creates the store and its base directory
func NewLocalReceiptStore(baseDir string, logger *zap.Logger) (*LocalReceiptStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create receipt dir: %w", err)
	}
	return &LocalReceiptStore{baseDir: baseDir, logger: logger}, nil
}

// Save streams the file to disk and returns its storage key
func (s *LocalReceiptStore) Save(r io.Reader, originalName string) (string, error) {
	id := uuid.NewString()
	key := filepath.Join(id[:2], id+sanitizeExt(originalName))

	fullPath := filepath.Join(s.baseDir, key)
	if err := s.validatePath(fullPath); err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create fan-out dir: %w", err)
	}

	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create receipt file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, r)
	if err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to write receipt file: %w", err)
	}

	s.logger.Debug("Receipt file saved",
		zap.String("key", key),
		zap.Int64("size", written))
	return key, nil
}

// Open opens the stored file for reading
func (s *LocalReceiptStore) Open(key string) (io.ReadCloser, error) {
	fullPath := filepath.Join(s.baseDir, key)
	if err := s.validatePath(fullPath); err != nil {
		return nil, err
	}
	return os.Open(fullPath)
}

// Remove deletes the stored file
func (s *LocalReceiptStore) Remove(key string) error {
	fullPath := filepath.Join(s.baseDir, key)
	if err := s.validatePath(fullPath); err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove receipt file: %w", err)
	}
	return nil
}

// validatePath rejects keys that would escape the base directory
func (s *LocalReceiptStore) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("storage key escapes base directory: %s", fullPath)
	}
	return nil
}

// sanitizeExt keeps only a plain, short extension from the original name
func sanitizeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) > 8 || strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return ext
}
