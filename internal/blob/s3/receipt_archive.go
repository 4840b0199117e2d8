package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alanyoungcy/betslip/internal/domain"
)

// ReceiptArchive writes one JSON object per receipt under
// "<prefix>/YYYY/MM/DD/<id>.json".
type ReceiptArchive struct {
	client   *Client
	uploader *manager.Uploader
	prefix   string
}

var _ domain.ReceiptWriter = (*ReceiptArchive)(nil)

// NewReceiptArchive creates a ReceiptArchive. prefix is independent of the
// client's slot prefix.
func NewReceiptArchive(c *Client, prefix string) *ReceiptArchive {
	return &ReceiptArchive{
		client:   c,
		uploader: manager.NewUploader(c.S3()),
		prefix:   strings.Trim(prefix, "/"),
	}
}

// ReceiptKey returns the object key a receipt is archived under.
func ReceiptKey(prefix string, r domain.Receipt) string {
	day := r.SentAt.UTC().Format("2006/01/02")
	key := day + "/" + r.ID + ".json"
	if prefix != "" {
		key = prefix + "/" + key
	}
	return key
}

// Record uploads the receipt.
func (a *ReceiptArchive) Record(ctx context.Context, r domain.Receipt) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("s3blob: marshal receipt %s: %w", r.ID, err)
	}
	key := ReceiptKey(a.prefix, r)
	_, err = a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.client.Bucket()),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: upload receipt %s: %w", key, err)
	}
	return nil
}

// List returns metadata for every receipt archived on the given day. It
// follows continuation tokens until the listing is exhausted.
func (a *ReceiptArchive) List(ctx context.Context, day time.Time) ([]domain.BlobInfo, error) {
	prefix := day.UTC().Format("2006/01/02") + "/"
	if a.prefix != "" {
		prefix = a.prefix + "/" + prefix
	}

	var infos []domain.BlobInfo
	paginator := s3.NewListObjectsV2Paginator(a.client.S3(), &s3.ListObjectsV2Input{
		Bucket: aws.String(a.client.Bucket()),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3blob: list prefix %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			info := domain.BlobInfo{
				Path: aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				info.LastModified = *obj.LastModified
			}
			infos = append(infos, info)
		}
	}
	return infos, nil
}

// Get downloads and decodes one archived receipt.
func (a *ReceiptArchive) Get(ctx context.Context, key string) (domain.Receipt, error) {
	out, err := a.client.S3().GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.client.Bucket()),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return domain.Receipt{}, fmt.Errorf("s3blob: get %s: %w", key, domain.ErrNotFound)
		}
		return domain.Receipt{}, fmt.Errorf("s3blob: get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("s3blob: read %s: %w", key, err)
	}
	var r domain.Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return domain.Receipt{}, fmt.Errorf("s3blob: decode %s: %w", key, err)
	}
	return r, nil
}
