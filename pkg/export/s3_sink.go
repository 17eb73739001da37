package export

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config configures the S3 sink. Empty credentials fall back to the SDK
// default chain (environment, shared config, instance role).
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"` // MinIO and other S3-compatible stores
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PathStyle bool   `yaml:"path_style"`
}

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Sink uploads artifacts to a bucket under <prefix>/<dataset>/.
type S3Sink struct {
	bucket   string
	prefix   string
	uploader uploader
}

// NewS3Sink builds an S3 client from cfg.
func NewS3Sink(ctx context.Context, cfg S3Config) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 sink: bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3 sink: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return newS3Sink(cfg, manager.NewUploader(client)), nil
}

func newS3Sink(cfg S3Config, up uploader) *S3Sink {
	return &S3Sink{bucket: cfg.Bucket, prefix: cfg.Prefix, uploader: up}
}

// Name implements Sink.
func (s *S3Sink) Name() string { return "s3" }

// Key returns the object key for a.
func (s *S3Sink) Key(a *Artifact) string {
	return path.Join(s.prefix, sanitize(a.Dataset), storedName(a))
}

// Put implements Sink.
func (s *S3Sink) Put(ctx context.Context, a *Artifact) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.Key(a)),
		Body:        bytes.NewReader(a.Body),
		ContentType: aws.String(a.ContentType),
		Metadata: map[string]string{
			"dataset":  a.Dataset,
			"format":   a.Format,
			"checksum": a.Checksum,
			"rows":     strconv.Itoa(a.Rows),
		},
	})
	if err != nil {
		return fmt.Errorf("s3 sink: upload s3://%s/%s: %w", s.bucket, s.Key(a), err)
	}
	return nil
}
