package imagestore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStore keeps images as objects under prefix in a Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCSStore(ctx context.Context, bucket, prefix, credentialsFile string) (*GCSStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) objectPath(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *GCSStore) publicURL(objectPath string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, objectPath)
}

func (s *GCSStore) Owns(imageURL string) bool {
	base := s.publicURL("")
	if s.prefix != "" {
		base = s.publicURL(s.prefix + "/")
	}
	return underBase(imageURL, base)
}

func (s *GCSStore) Save(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	name, err := NameFromURL(name)
	if err != nil {
		return "", err
	}
	objectPath := s.objectPath(name)
	w := s.client.Bucket(s.bucket).Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return s.publicURL(objectPath), nil
}

func (s *GCSStore) Delete(ctx context.Context, imageURL string) error {
	name, err := NameFromURL(imageURL)
	if err != nil {
		return err
	}
	err = s.client.Bucket(s.bucket).Object(s.objectPath(name)).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrNotExist
	}
	return err
}

func (s *GCSStore) List(ctx context.Context) ([]string, error) {
	q := &storage.Query{}
	if s.prefix != "" {
		q.Prefix = s.prefix + "/"
	}
	it := s.client.Bucket(s.bucket).Objects(ctx, q)
	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		name := path.Base(attrs.Name)
		if strings.HasSuffix(attrs.Name, "/") || strings.HasPrefix(name, ".") {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}
