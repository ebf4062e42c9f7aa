package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/Itish41/DocIntel/apperrors"
)

// GCSStore stores blobs in a Cloud Storage bucket.
type GCSStore struct {
	bucket *storage.BucketHandle
	name   string
}

// NewGCSStore uses application default credentials.
func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return NewGCSStoreWithClient(client, bucket), nil
}

func NewGCSStoreWithClient(client *storage.Client, bucket string) *GCSStore {
	return &GCSStore{bucket: client.Bucket(bucket), name: bucket}
}

// Put writes with a DoesNotExist precondition so an existing object is never overwritten.
func (g *GCSStore) Put(ctx context.Context, docID, fileName, contentType string, r io.Reader) (string, error) {
	key := ObjectKey(docID, fileName)
	w := g.bucket.Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", apperrors.New(apperrors.ErrStorageFailure, "gcs put "+key, err)
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			return "", apperrors.New(apperrors.ErrStorageFailure, "gcs put "+key, fmt.Errorf("object already exists"))
		}
		return "", apperrors.New(apperrors.ErrStorageFailure, "gcs put "+key, err)
	}
	return key, nil
}

func (g *GCSStore) Get(ctx context.Context, handle string) (io.ReadCloser, error) {
	rc, err := g.bucket.Object(handle).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, apperrors.NotFound("blob", handle)
		}
		return nil, apperrors.New(apperrors.ErrStorageFailure, "gcs get "+handle, err)
	}
	return rc, nil
}

func (g *GCSStore) Delete(ctx context.Context, handle string) (bool, error) {
	if err := g.bucket.Object(handle).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, apperrors.New(apperrors.ErrStorageFailure, "gcs delete "+handle, err)
	}
	return true, nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
