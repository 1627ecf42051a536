// Package s3 stores event media (cover images, galleries) in object storage
// and hands back public URLs for the portal pages.
package s3

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	FolderCover = "cover"
	FolderMedia = "media"
)

var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

type MediaStore struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	region   string
}

func NewMediaStore(ctx context.Context, region, bucket string) (*MediaStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	return &MediaStore{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		region:   region,
	}, nil
}

// ObjectKey builds the storage path for an event asset:
// events/event_<slug>/<folder>/<filename>.
func ObjectKey(slug, folder, filename string) string {
	return path.Join("events", "event_"+slug, folder, path.Base(filename))
}

// AllowedMediaType reports whether the filename has a supported image
// extension and returns its MIME type.
func AllowedMediaType(filename string) (string, bool) {
	ct, ok := allowedExtensions[strings.ToLower(path.Ext(filename))]
	return ct, ok
}

// Upload streams the body to object storage and returns the public URL.
func (m *MediaStore) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	_, err := m.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return m.PublicURL(key), nil
}

func (m *MediaStore) Delete(ctx context.Context, key string) error {
	_, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	return err
}

// List returns the keys under an event's media prefix.
func (m *MediaStore) List(ctx context.Context, slug, folder string) ([]string, error) {
	prefix := path.Join("events", "event_"+slug, folder) + "/"
	out, err := m.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(m.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		keys = append(keys, aws.ToString(obj.Key))
	}
	return keys, nil
}

func (m *MediaStore) PublicURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", m.bucket, m.region, key)
}
