// Package gcs keeps the remote ledger as a single JSON object in a Google
// Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"anwarfarm/internal/core"
	"anwarfarm/internal/remote"
)

var _ remote.Store = (*Client)(nil)

type Client struct {
	client *storage.Client
	bucket string
	object string
}

// New opens a storage client. Credentials come from Application Default
// Credentials unless opts say otherwise.
func New(ctx context.Context, bucket, object string, opts ...option.ClientOption) (*Client, error) {
	if bucket == "" {
		return nil, errors.New("missing GCS_BUCKET")
	}
	if object == "" {
		object = "ledger.json"
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Client{client: client, bucket: bucket, object: object}, nil
}

func (c *Client) Name() string { return "gcs" }

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Get(ctx context.Context) ([]core.Transaction, error) {
	r, err := c.client.Bucket(c.bucket).Object(c.object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, remote.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}
	return remote.DecodeDocument(data)
}

func (c *Client) Put(ctx context.Context, records []core.Transaction) error {
	doc, err := remote.EncodeDocument(records)
	if err != nil {
		return err
	}

	w := c.client.Bucket(c.bucket).Object(c.object).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(doc); err != nil {
		_ = w.Close()
		return fmt.Errorf("write GCS object: %w", err)
	}
	// Close finalizes the upload; the object is replaced only if it succeeds.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}
