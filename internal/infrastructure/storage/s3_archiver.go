// Package storage archives raw rate API payloads to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/finadmin/backend/internal/domain/fx"
	infraconfig "github.com/finadmin/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ObjectPutter is the subset of the S3 client used by the archiver
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3SnapshotArchiver stores every fetched rate payload as a JSON object.
// Works with AWS S3, MinIO, RustFS and other S3-compatible backends.
type S3SnapshotArchiver struct {
	client ObjectPutter
	bucket string
	prefix string
	logger *zap.Logger
}

// S3SnapshotArchiverOption configures the archiver
type S3SnapshotArchiverOption func(*S3SnapshotArchiver)

// WithLogger sets the archiver logger
func WithLogger(logger *zap.Logger) S3SnapshotArchiverOption {
	return func(a *S3SnapshotArchiver) {
		a.logger = logger
	}
}

// WithClient replaces the S3 client
func WithClient(client ObjectPutter) S3SnapshotArchiverOption {
	return func(a *S3SnapshotArchiver) {
		a.client = client
	}
}

// NewS3SnapshotArchiver builds an archiver from storage configuration.
// Static credentials are used when both keys are set; otherwise the default
// AWS credential chain applies.
func NewS3SnapshotArchiver(ctx context.Context, cfg *infraconfig.StorageConfig, opts ...S3SnapshotArchiverOption) (*S3SnapshotArchiver, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if (cfg.AccessKeyID == "") != (cfg.SecretAccessKey == "") {
		return nil, errors.New("storage access key and secret key must be set together")
	}

	a := &S3SnapshotArchiver{
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.client != nil {
		return a, nil
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	a.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return a, nil
}

// ObjectKey is prefix/YYYY/MM/DD/<provider>-<base>-<unix>.json
func (a *S3SnapshotArchiver) ObjectKey(s *fx.Snapshot) string {
	provider := s.Provider
	if provider == "" {
		provider = "unknown"
	}
	name := fmt.Sprintf("%s-%s-%d.json", provider, s.Table.Base, s.FetchedAt.Unix())
	return path.Join(a.prefix, s.FetchedAt.UTC().Format("2006/01/02"), name)
}

// Archive uploads the raw payload of s
func (a *S3SnapshotArchiver) Archive(ctx context.Context, s *fx.Snapshot) error {
	if s == nil || len(s.Raw) == 0 {
		return errors.New("snapshot has no payload")
	}
	key := a.ObjectKey(s)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(s.Raw),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"provider":  s.Provider,
			"base":      s.Table.Base.String(),
			"rate-date": s.Table.Date.Format("2006-01-02"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to archive rate snapshot: %w", err)
	}
	a.logger.Debug("rate snapshot archived", zap.String("bucket", a.bucket), zap.String("key", key))
	return nil
}

var _ fx.SnapshotArchiver = (*S3SnapshotArchiver)(nil)

// NoopArchiver discards snapshots; used when no bucket is configured
type NoopArchiver struct{}

// Archive implements fx.SnapshotArchiver
func (NoopArchiver) Archive(context.Context, *fx.Snapshot) error { return nil }

var _ fx.SnapshotArchiver = NoopArchiver{}
