package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"github.com/mtlprog/mintbridge/internal/domain"
)

// GCSStore keeps the snapshot as a single Cloud Storage object.
// It assumes Application Default Credentials are configured.
type GCSStore struct {
	client *storage.Client
	bucket string
	object string
}

// NewGCSStore creates a GCSStore for gs://bucket/object.
func NewGCSStore(client *storage.Client, bucket, object string) *GCSStore {
	return &GCSStore{client: client, bucket: bucket, object: object}
}

func (s *GCSStore) Load(ctx context.Context) (domain.Snapshot, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return domain.Snapshot{}, ErrNotFound
		}
		return domain.Snapshot{}, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("read GCS object: %w", err)
	}

	snap, err := domain.ParseSnapshot(data)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("parsing gs://%s/%s: %w", s.bucket, s.object, err)
	}
	return snap, nil
}

// Save uploads the snapshot; the object only becomes visible once the
// writer is closed successfully.
func (s *GCSStore) Save(ctx context.Context, snap domain.Snapshot) error {
	data, err := snap.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	w := s.client.Bucket(s.bucket).Object(s.object).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write GCS object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

var _ Store = (*GCSStore)(nil)
