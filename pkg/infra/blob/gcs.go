package blob

import (
	"context"
	"errors"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfdesk/pkg/domain/types"
	"google.golang.org/api/option"
)

// GCS keeps blobs as objects in a Google Cloud Storage bucket
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS creates a blob store on bucket. Objects are named prefix/<blob id>.
func NewGCS(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCS, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}

	return &GCS{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (s *GCS) object(id types.BlobID) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(path.Join(s.prefix, string(id)))
}

func (s *GCS) Put(ctx context.Context, id types.BlobID, contentType string, r io.Reader) (int64, error) {
	w := s.object(id).NewWriter(ctx)
	w.ContentType = contentType

	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return 0, goerr.Wrap(err, "failed to write object", goerr.V("bucket", s.bucket), goerr.V("blob_id", id))
	}
	if err := w.Close(); err != nil {
		return 0, goerr.Wrap(err, "failed to finalize object", goerr.V("bucket", s.bucket), goerr.V("blob_id", id))
	}

	return n, nil
}

func (s *GCS) Open(ctx context.Context, id types.BlobID) (io.ReadCloser, error) {
	r, err := s.object(id).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, goerr.Wrap(ErrNotFound, "failed to open object", goerr.V("bucket", s.bucket), goerr.V("blob_id", id))
		}
		return nil, goerr.Wrap(err, "failed to open object", goerr.V("bucket", s.bucket), goerr.V("blob_id", id))
	}
	return r, nil
}

func (s *GCS) Delete(ctx context.Context, id types.BlobID) error {
	if err := s.object(id).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return goerr.Wrap(err, "failed to delete object", goerr.V("bucket", s.bucket), goerr.V("blob_id", id))
	}
	return nil
}

// Close releases the storage client
func (s *GCS) Close() error {
	return s.client.Close()
}
