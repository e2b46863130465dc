// Package blobstore stores uploaded medical-record files. It defines the
// Store interface, a filesystem implementation for production use and an
// in-memory implementation for testing.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	ErrNotFound           = errors.New("file not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
	ErrMissingFileName    = errors.New("file name is required")
)

// DefaultMaxFileSize caps uploads at 25 MB unless configured otherwise.
const DefaultMaxFileSize = 25 * 1024 * 1024

// AllowedContentTypes lists the MIME types accepted for medical records.
var AllowedContentTypes = map[string]bool{
	"image/png":         true,
	"image/jpeg":        true,
	"image/dicom":       true,
	"application/pdf":   true,
	"application/dicom": true,
	"text/plain":        true,
}

// Object describes a stored file.
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Hash        string `json:"hash"`
}

// Store is the contract for file storage backends. Save reads the content
// fully, enforcing the size cap, and returns the stored object including the
// URL callers persist alongside their metadata.
type Store interface {
	Save(ctx context.Context, fileName, contentType string, content io.Reader) (*Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// validate enforces the shared upload rules and returns the read content.
func validate(fileName, contentType string, content io.Reader, maxSize int64) ([]byte, error) {
	if strings.TrimSpace(fileName) == "" {
		return nil, ErrMissingFileName
	}
	if !AllowedContentTypes[contentType] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidContentType, contentType)
	}
	data, err := io.ReadAll(io.LimitReader(content, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

// key derives the storage key from the content hash and original extension,
// so identical uploads dedupe naturally and names never collide.
func key(fileName string, data []byte) (string, string) {
	sum := fmt.Sprintf("%x", sha256.Sum256(data))
	return sum + strings.ToLower(filepath.Ext(fileName)), sum
}

// FSStore persists files under a root directory and serves them from a URL
// prefix (e.g. /uploads).
type FSStore struct {
	root      string
	urlPrefix string
	maxSize   int64
}

func NewFSStore(root, urlPrefix string, maxSize int64) (*FSStore, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FSStore{root: root, urlPrefix: strings.TrimRight(urlPrefix, "/"), maxSize: maxSize}, nil
}

func (s *FSStore) Save(_ context.Context, fileName, contentType string, content io.Reader) (*Object, error) {
	data, err := validate(fileName, contentType, content, s.maxSize)
	if err != nil {
		return nil, err
	}
	k, sum := key(fileName, data)
	if err := os.WriteFile(filepath.Join(s.root, k), data, 0o644); err != nil {
		return nil, fmt.Errorf("write blob: %w", err)
	}
	return &Object{
		Key:         k,
		URL:         s.urlPrefix + "/" + k,
		ContentType: contentType,
		Size:        int64(len(data)),
		Hash:        sum,
	}, nil
}

func (s *FSStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.root, filepath.Base(key)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *FSStore) Remove(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(s.root, filepath.Base(key)))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

// MemStore is a thread-safe in-memory Store for tests and development.
type MemStore struct {
	mu      sync.RWMutex
	files   map[string][]byte
	maxSize int64
}

func NewMemStore() *MemStore {
	return &MemStore{files: make(map[string][]byte), maxSize: DefaultMaxFileSize}
}

func (s *MemStore) Save(_ context.Context, fileName, contentType string, content io.Reader) (*Object, error) {
	data, err := validate(fileName, contentType, content, s.maxSize)
	if err != nil {
		return nil, err
	}
	k, sum := key(fileName, data)

	s.mu.Lock()
	s.files[k] = data
	s.mu.Unlock()

	return &Object{
		Key:         k,
		URL:         "mem://" + k,
		ContentType: contentType,
		Size:        int64(len(data)),
		Hash:        sum,
	}, nil
}

func (s *MemStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.files[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[key]; !ok {
		return ErrNotFound
	}
	delete(s.files, key)
	return nil
}
