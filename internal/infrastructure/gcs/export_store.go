// Package gcs writes diary exports to a Cloud Storage bucket.
package gcs

import (
	"bytes"
	"context"
	"errors"
	"path"

	"cloud.google.com/go/storage"

	"github.com/oksasatya/go-ddd-diary/pkg/helpers"
)

// ExportStore uploads objects under Prefix in Bucket.
type ExportStore struct {
	Client *storage.Client
	Bucket string
	Prefix string
}

func NewExportStore(client *storage.Client, bucket, prefix string) (*ExportStore, error) {
	if client == nil || bucket == "" {
		return nil, errors.New("gcs export store needs a client and a bucket")
	}
	return &ExportStore{Client: client, Bucket: bucket, Prefix: prefix}, nil
}

// Put uploads body and returns the gs:// URL of the object.
func (s *ExportStore) Put(ctx context.Context, name, contentType string, body []byte) (string, error) {
	return helpers.UploadObject(ctx, s.Client, s.Bucket, s.objectPath(name), contentType, bytes.NewReader(body))
}

func (s *ExportStore) objectPath(name string) string {
	if s.Prefix == "" {
		return name
	}
	return path.Join(s.Prefix, name)
}
