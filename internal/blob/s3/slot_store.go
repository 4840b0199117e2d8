package s3blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/alanyoungcy/betslip/internal/domain"
)

// SlotStore implements domain.SlotStore with one JSON object per slot at
// "<prefix>/<key>.json".
type SlotStore struct {
	client *Client
}

var _ domain.SlotStore = (*SlotStore)(nil)

// NewSlotStore creates a SlotStore in the client's bucket.
func NewSlotStore(c *Client) *SlotStore {
	return &SlotStore{client: c}
}

func (s *SlotStore) path(key string) string {
	return s.client.objectKey(url.PathEscape(key) + ".json")
}

// Get returns the slot's bytes or domain.ErrNotFound.
func (s *SlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	path := s.path(key)
	out, err := s.client.S3().GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.client.Bucket()),
		Key:    aws.String(path),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("s3blob: get %s: %w", path, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3blob: read %s: %w", path, err)
	}
	return data, nil
}

// Put uploads the slot in a single PutObject request.
func (s *SlotStore) Put(ctx context.Context, key string, data []byte) error {
	path := s.path(key)
	_, err := s.client.S3().PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.client.Bucket()),
		Key:         aws.String(path),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put object %s: %w", path, err)
	}
	return nil
}

// Delete removes the slot. Idempotent: no error if the object does not exist.
func (s *SlotStore) Delete(ctx context.Context, key string) error {
	path := s.path(key)
	_, err := s.client.S3().DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.client.Bucket()),
		Key:    aws.String(path),
	})
	if err != nil {
		return fmt.Errorf("s3blob: delete %s: %w", path, err)
	}
	return nil
}

// isNotFound returns true when the error indicates the requested S3 object
// does not exist. It checks for both the SDK typed error (NoSuchKey) and
// the generic 404 response.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}

	// Some S3-compatible providers return a bare HTTP 404.
	type httpResponseError interface {
		HTTPStatusCode() int
	}
	var httpErr httpResponseError
	return errors.As(err, &httpErr) && httpErr.HTTPStatusCode() == 404
}
