package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

var ErrNoBackup = errors.New("no cloud backup found")

// ObjectStore holds backup files.
type ObjectStore interface {
	Put(ctx context.Context, name, contentType string, data []byte) error
	// Latest returns the name and contents of the newest object under prefix.
	Latest(ctx context.Context, prefix string) (string, []byte, error)
}

// ObjectName is backups/{vendorId}/{timestamp}.csv; the timestamp sorts
// lexically in time order.
func ObjectName(vendorID uint, t time.Time) string {
	return fmt.Sprintf("%s%s.csv", ObjectPrefix(vendorID), t.UTC().Format("20060102T150405Z"))
}

func ObjectPrefix(vendorID uint) string {
	return fmt.Sprintf("backups/%d/", vendorID)
}

type GCSStore struct {
	client *storage.Client
	bucket string
}

func NewGCSStore(ctx context.Context, bucket, credJSON string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("GCS_BUCKET is required")
	}
	var opts []option.ClientOption
	if strings.TrimSpace(credJSON) != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (s *GCSStore) Put(ctx context.Context, name, contentType string, data []byte) error {
	wc := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return fmt.Errorf("gcs write %s: %w", name, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("gcs close %s: %w", name, err)
	}
	return nil
}

func (s *GCSStore) Latest(ctx context.Context, prefix string) (string, []byte, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	var newest string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("gcs list %s: %w", prefix, err)
		}
		if attrs.Name > newest {
			newest = attrs.Name
		}
	}
	if newest == "" {
		return "", nil, ErrNoBackup
	}

	rc, err := s.client.Bucket(s.bucket).Object(newest).NewReader(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("gcs read %s: %w", newest, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", nil, fmt.Errorf("gcs read %s: %w", newest, err)
	}
	return newest, data, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
