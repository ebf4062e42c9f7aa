package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/Itish41/DocIntel/apperrors"
)

// S3Config points at any S3 compatible endpoint, Supabase storage included.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// S3Store stores blobs in a single bucket.
type S3Store struct {
	client s3iface.S3API
	bucket string
}

// NewS3Store opens a path-style session against cfg.Endpoint.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("missing required S3 configuration: bucket and region")
	}

	awsCfg := &aws.Config{
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(true),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return NewS3StoreWithClient(s3.New(sess), cfg.Bucket), nil
}

// NewS3StoreWithClient wraps an existing client.
func NewS3StoreWithClient(client s3iface.S3API, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

func (s *S3Store) Put(ctx context.Context, docID, fileName, contentType string, r io.Reader) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", apperrors.New(apperrors.ErrStorageFailure, "s3 put", fmt.Errorf("failed to read upload: %w", err))
	}

	key := ObjectKey(docID, fileName)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObjectWithContext(ctx, input); err != nil {
		return "", apperrors.New(apperrors.ErrStorageFailure, "s3 put "+key, err)
	}

	slog.DebugContext(ctx, "stored blob", "document_id", docID, "bucket", s.bucket, "key", key, "size", len(body))
	return key, nil
}

func (s *S3Store) Get(ctx context.Context, handle string) (io.ReadCloser, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(handle),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, apperrors.NotFound("blob", handle)
		}
		return nil, apperrors.New(apperrors.ErrStorageFailure, "s3 get "+handle, err)
	}
	return out.Body, nil
}

func (s *S3Store) Delete(ctx context.Context, handle string) (bool, error) {
	// DeleteObject succeeds for missing keys, so existence is checked first.
	_, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(handle),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, apperrors.New(apperrors.ErrStorageFailure, "s3 head "+handle, err)
	}

	if _, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(handle),
	}); err != nil {
		return false, apperrors.New(apperrors.ErrStorageFailure, "s3 delete "+handle, err)
	}
	return true, nil
}

func isS3NotFound(err error) bool {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return true
	}
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
