package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MockMediaStorage keeps evidence and receipt files on the local
// filesystem, for dev and tests without a cloud bucket.
type MockMediaStorage struct {
	baseURL   string
	mediaDir  string
}

func NewMockMediaStorage(baseURL, uploadDir string) (*MockMediaStorage, error) {
	mediaDir := filepath.Join(uploadDir, "media")
	if err := os.MkdirAll(mediaDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &MockMediaStorage{baseURL: baseURL, mediaDir: mediaDir}, nil
}

func (m *MockMediaStorage) Store(ctx context.Context, key string, contentType string, content io.Reader) (string, error) {
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	fullPath := filepath.Join(m.mediaDir, key)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directories: %w", err)
	}
	f, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, content); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return m.URL(key), nil
}

func (m *MockMediaStorage) URL(key string) string {
	return fmt.Sprintf("%s/api/v1/media/%s", m.baseURL, key)
}

func (m *MockMediaStorage) Read(key string) (io.ReadCloser, error) {
	if strings.Contains(key, "..") {
		return nil, fmt.Errorf("invalid storage key %q", key)
	}
	return os.Open(filepath.Join(m.mediaDir, key))
}

func (m *MockMediaStorage) Delete(ctx context.Context, key string) error {
	err := os.Remove(filepath.Join(m.mediaDir, key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
