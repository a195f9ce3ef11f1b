package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"NewsDesk/internal/domain"
	"NewsDesk/internal/ports"
)

// S3Config locates the archive object.
type S3Config struct {
	Bucket       string
	Key          string
	Region       string
	UsePathStyle bool
}

// ObjectAPI is the subset of the S3 client the archive needs.
type ObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Persistence keeps the archive as one JSON object in a bucket.
type S3Persistence struct {
	client ObjectAPI
	bucket string
	key    string
}

var _ ports.ArchivePersistence = (*S3Persistence)(nil)

// NewS3Client builds an S3 client from the default AWS credential chain.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// NewS3Persistence stores the archive at bucket/key; key defaults to archive.json.
func NewS3Persistence(client ObjectAPI, bucket, key string) *S3Persistence {
	if key == "" {
		key = "archive.json"
	}
	return &S3Persistence{client: client, bucket: bucket, key: key}
}

// Load fetches the object; a missing key is an empty archive.
func (p *S3Persistence) Load(ctx context.Context) (map[string]*domain.ArchiveRecord, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.key),
	})
	if err != nil {
		if isMissing(err) {
			return map[string]*domain.ArchiveRecord{}, nil
		}
		return nil, fmt.Errorf("get archive object: %w", err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read archive object: %w", err)
	}
	return decodeArchive(raw)
}

// Save overwrites the object.
func (p *S3Persistence) Save(ctx context.Context, records map[string]*domain.ArchiveRecord) error {
	raw, err := encodeArchive(records)
	if err != nil {
		return err
	}
	return p.put(ctx, p.key, raw)
}

// Snapshot writes a backup object next to the archive and returns its URI.
func (p *S3Persistence) Snapshot(ctx context.Context, records map[string]*domain.ArchiveRecord, label string) (string, error) {
	raw, err := encodeArchive(records)
	if err != nil {
		return "", err
	}
	ext := path.Ext(p.key)
	key := fmt.Sprintf("%s_backup_%s%s", strings.TrimSuffix(p.key, ext), snapshotLabel(label), ext)
	if err := p.put(ctx, key, raw); err != nil {
		return "", err
	}
	return fmt.Sprintf("s3://%s/%s", p.bucket, key), nil
}

func (p *S3Persistence) put(ctx context.Context, key string, raw []byte) error {
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func isMissing(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}
