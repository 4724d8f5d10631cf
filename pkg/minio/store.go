package minio

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
)

// ErrNotFound indicates the requested object key does not exist in the bucket.
var ErrNotFound = errors.New("object not found")

// TransportError wraps a network, auth or server failure during a storage
// operation. Transient or not, the store never retries; that decision belongs
// to the caller.
type TransportError struct {
	Op  string // "download" or "upload"
	Key string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("storage %s %s: %s", e.Op, e.Key, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Store moves blobs between the media bucket and local scratch paths.
type Store struct {
	client     *minio.Client
	bucketName string
}

// NewStore creates a store bound to one bucket.
func NewStore(client *minio.Client, bucketName string) *Store {
	return &Store{
		client:     client,
		bucketName: bucketName,
	}
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context) error {
	return EnsureBucketExists(ctx, s.client, s.bucketName)
}

// Download fetches the object at key into localPath. A missing key maps to
// ErrNotFound, any other failure to a TransportError.
func (s *Store) Download(ctx context.Context, key, localPath string) error {
	err := s.client.FGetObject(ctx, s.bucketName, objectName(key), localPath, minio.GetObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return &TransportError{Op: "download", Key: key, Err: err}
	}

	return nil
}

// Upload pushes the file at localPath to key, overwriting any existing
// object. Overwrites make the upload idempotent under redelivery.
func (s *Store) Upload(ctx context.Context, localPath, key string) error {
	_, err := s.client.FPutObject(ctx, s.bucketName, objectName(key), localPath, minio.PutObjectOptions{
		ContentType: contentTypeFor(key),
	})
	if err != nil {
		return &TransportError{Op: "upload", Key: key, Err: err}
	}

	return nil
}

// objectName strips the logical leading slash; MinIO keys are not rooted.
func objectName(key string) string {
	return strings.TrimPrefix(key, "/")
}

func contentTypeFor(key string) string {
	if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
