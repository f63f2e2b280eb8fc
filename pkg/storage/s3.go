package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/snackpdf/pdf-api/pkg/config"
)

// S3Store uploads objects to an S3-compatible bucket (AWS or MinIO).
type S3Store struct {
	client         *s3.Client
	presign        *s3.PresignClient
	bucket         string
	publicBase     string
	presignURLs    bool
	presignExpires time.Duration
}

// NewS3Store builds a client from static credentials and an optional custom
// endpoint (MinIO style).
func NewS3Store(ctx context.Context, cfg config.StorageConfig) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKey,
			cfg.S3SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
	})

	expires := cfg.PresignExpires
	if expires <= 0 {
		expires = 24 * time.Hour
	}

	return &S3Store{
		client:         client,
		presign:        s3.NewPresignClient(client),
		bucket:         cfg.S3Bucket,
		publicBase:     strings.TrimRight(cfg.S3PublicBase, "/"),
		presignURLs:    cfg.PresignURLs,
		presignExpires: expires,
	}, nil
}

// Upload puts the object and returns its retrieval URL. Buckets fronted by a
// CDN or public read policy use the configured public base; otherwise a
// presigned GET is issued.
func (s *S3Store) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", name, err)
	}

	if s.presignURLs {
		req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(name),
		}, s3.WithPresignExpires(s.presignExpires))
		if err != nil {
			return "", fmt.Errorf("presign object %s: %w", name, err)
		}
		return req.URL, nil
	}

	if s.publicBase != "" {
		return fmt.Sprintf("%s/%s", s.publicBase, name), nil
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, name), nil
}
