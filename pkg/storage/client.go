package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sahti/patient-portal/pkg/config"
	"github.com/sahti/patient-portal/pkg/logger"
)

// Object is one stored file as reported by the storage API.
type Object struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Metadata  struct {
		Size int64 `json:"size"`
	} `json:"metadata"`
}

// Client talks to the object storage HTTP API for one bucket.
type Client struct {
	client *resty.Client
	config config.StorageConfig
	logger *logger.Logger
}

// NewClient creates a new object storage client
func NewClient(cfg config.StorageConfig, log *logger.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Authorization", "Bearer "+cfg.ServiceKey)

	return &Client{
		client: client,
		config: cfg,
		logger: log,
	}
}

// List returns the bucket's objects, up to the configured listing cap.
func (c *Client) List(ctx context.Context) ([]Object, error) {
	var objects []Object

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"prefix": "",
			"limit":  c.config.MaxListing,
		}).
		SetResult(&objects).
		Post(fmt.Sprintf("/storage/v1/object/list/%s", c.config.Bucket))
	if err != nil {
		return nil, fmt.Errorf("storage list failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("storage list failed: status %d", resp.StatusCode())
	}

	return objects, nil
}

// Remove deletes the named objects from the bucket.
func (c *Client) Remove(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{"prefixes": names}).
		Delete(fmt.Sprintf("/storage/v1/object/%s", c.config.Bucket))
	if err != nil {
		return fmt.Errorf("storage remove failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("storage remove failed: status %d", resp.StatusCode())
	}

	c.logger.WithField("count", len(names)).Info("Storage objects removed")
	return nil
}

// PublicURL returns the public URL for an object name. Medical test
// records store this URL, so cleanup uses it to match rows to files.
func (c *Client) PublicURL(name string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.config.BaseURL, c.config.Bucket, name)
}

// Usage sums object sizes for the bucket.
func (c *Client) Usage(ctx context.Context) (totalBytes int64, fileCount int, err error) {
	objects, err := c.List(ctx)
	if err != nil {
		return 0, 0, err
	}

	for _, obj := range objects {
		totalBytes += obj.Metadata.Size
		fileCount++
	}
	return totalBytes, fileCount, nil
}
