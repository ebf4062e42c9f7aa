// Package blobstore keeps the original bytes of uploaded documents. A handle
// returned by Put is the document's storage path; its extension is the
// original file's extension so extraction can dispatch on it.
package blobstore

import (
	"context"
	"io"
	"path/filepath"

	"github.com/google/uuid"
)

// Store is a durable blob store.
type Store interface {
	// Put stores r under a new unique key derived from docID and fileName.
	Put(ctx context.Context, docID, fileName, contentType string, r io.Reader) (string, error)
	// Get opens the blob. Missing blobs are apperrors.ErrNotFound.
	Get(ctx context.Context, handle string) (io.ReadCloser, error)
	// Delete removes the blob and reports whether it existed.
	Delete(ctx context.Context, handle string) (bool, error)
}

// ObjectKey builds "<docID>_<uuid><ext>" keeping the original extension.
func ObjectKey(docID, fileName string) string {
	return docID + "_" + uuid.NewString() + filepath.Ext(fileName)
}
