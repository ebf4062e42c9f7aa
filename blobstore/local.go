package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Itish41/DocIntel/apperrors"
)

// LocalStore keeps blobs as files under a single directory.
type LocalStore struct {
	dir string
}

// NewLocalStore creates dir when missing.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

func (l *LocalStore) Put(_ context.Context, docID, fileName, _ string, r io.Reader) (string, error) {
	key := ObjectKey(docID, filepath.Base(fileName))
	path := filepath.Join(l.dir, key)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", apperrors.New(apperrors.ErrStorageFailure, "local put "+key, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", apperrors.New(apperrors.ErrStorageFailure, "local put "+key, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", apperrors.New(apperrors.ErrStorageFailure, "local put "+key, err)
	}
	return key, nil
}

func (l *LocalStore) Get(_ context.Context, handle string) (io.ReadCloser, error) {
	path, err := l.resolve(handle)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NotFound("blob", handle)
		}
		return nil, apperrors.New(apperrors.ErrStorageFailure, "local get "+handle, err)
	}
	return f, nil
}

func (l *LocalStore) Delete(_ context.Context, handle string) (bool, error) {
	path, err := l.resolve(handle)
	if err != nil {
		return false, err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, apperrors.New(apperrors.ErrStorageFailure, "local delete "+handle, err)
	}
	return true, nil
}

// resolve rejects handles that would escape the storage directory.
func (l *LocalStore) resolve(handle string) (string, error) {
	if handle == "" || filepath.IsAbs(handle) || strings.Contains(handle, "..") || strings.ContainsAny(handle, `/\`) {
		return "", apperrors.New(apperrors.ErrInvalidInput, "resolve blob", fmt.Errorf("invalid handle %q", handle))
	}
	return filepath.Join(l.dir, handle), nil
}
