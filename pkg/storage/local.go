package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage implements Storage on the local filesystem. ETags mimic S3's
// single-part format: the quoted hex MD5 of the content.
type LocalStorage struct {
	basePath  string
	publicURL string
}

// LocalConfig holds configuration for local storage.
type LocalConfig struct {
	BasePath string `mapstructure:"base_path"`
	// Route is the HTTP path prefix the base path is served under.
	Route string `mapstructure:"route"`
	// PublicURL is prepended to keys when building object URLs.
	PublicURL string `mapstructure:"public_url"`
}

// NewLocalStorage creates a new LocalStorage instance.
func NewLocalStorage(cfg LocalConfig) (*LocalStorage, error) {
	if err := os.MkdirAll(cfg.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}

	absPath, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	return &LocalStorage{
		basePath:  absPath,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
	}, nil
}

// fullPath maps a key into basePath; keys escaping the base are rejected.
func (s *LocalStorage) fullPath(key string) (string, error) {
	cleanKey := filepath.Clean(filepath.FromSlash(key))
	if cleanKey == "." || cleanKey == ".." || filepath.IsAbs(cleanKey) ||
		strings.HasPrefix(cleanKey, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid key: %q", key)
	}
	return filepath.Join(s.basePath, cleanKey), nil
}

// Put writes to a temp file and renames it into place so readers never see
// a partial object.
func (s *LocalStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*PutResult, error) {
	path, err := s.fullPath(key)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	hash := md5.New()
	if _, err := io.Copy(io.MultiWriter(tmpFile, hash), r); err != nil {
		tmpFile.Close()
		return nil, fmt.Errorf("failed to write content: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return nil, fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return &PutResult{
		Key:  key,
		ETag: `"` + hex.EncodeToString(hash.Sum(nil)) + `"`,
		URL:  s.URL(key),
	}, nil
}

// URL returns the public address for key.
func (s *LocalStorage) URL(key string) string {
	return s.publicURL + "/" + strings.TrimPrefix(key, "/")
}

// BasePath returns the absolute directory objects are written to.
func (s *LocalStorage) BasePath() string {
	return s.basePath
}
