package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config holds object store connection settings.
type Config struct {
	Provider      string
	Region        string
	AccessKey     string
	SecretKey     string
	Endpoint      string
	UsePathStyle  bool
	PublicBaseURL string
}

// S3Provider implements Provider over any S3-compatible store. A custom
// endpoint plus path style covers MinIO for local development.
type S3Provider struct {
	client        *s3.Client
	presign       *s3.PresignClient
	region        string
	publicBaseURL string
}

// NewS3Provider builds an S3 client from static credentials when supplied,
// falling back to the default chain (IAM roles, env vars).
func NewS3Provider(ctx context.Context, cfg Config) (*S3Provider, error) {
	var (
		awsCfg aws.Config
		err    error
	)
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	}
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})

	return &S3Provider{
		client:        client,
		presign:       s3.NewPresignClient(client),
		region:        cfg.Region,
		publicBaseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

// Upload stores the object and returns the listing entry for it.
func (p *S3Provider) Upload(ctx context.Context, input UploadInput) (Object, error) {
	put := &s3.PutObjectInput{
		Bucket:      aws.String(input.Bucket),
		Key:         aws.String(input.Path),
		Body:        input.Body,
		ContentType: aws.String(input.ContentType),
	}
	if input.CacheControl != "" {
		put.CacheControl = aws.String(input.CacheControl)
	}
	if !input.Upsert {
		// Conditional write: fail instead of silently replacing an
		// existing key.
		put.IfNoneMatch = aws.String("*")
	}
	if _, err := p.client.PutObject(ctx, put); err != nil {
		return Object{}, fmt.Errorf("storage: put object: %w", err)
	}
	return Object{Bucket: input.Bucket, Path: input.Path, UpdatedAt: time.Now()}, nil
}

// Delete removes an object. Deleting a missing key is not an error in S3.
func (p *S3Provider) Delete(ctx context.Context, bucket, path string) error {
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return fmt.Errorf("storage: delete object: %w", err)
	}
	return nil
}

// PublicURL builds a stable URL for objects in public buckets.
func (p *S3Provider) PublicURL(bucket, path string) string {
	if p.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", p.publicBaseURL, bucket, path)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, p.region, path)
}

// SignedURL issues a presigned GET for private objects.
func (p *S3Provider) SignedURL(ctx context.Context, bucket, path string, expires time.Duration) (string, error) {
	req, err := p.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(path),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("storage: presign: %w", err)
	}
	return req.URL, nil
}

// ListObjects pages through the bucket under prefix.
func (p *S3Provider) ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error) {
	var objects []Object
	paginator := s3.NewListObjectsV2Paginator(p.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("storage: list objects: %w", err)
		}
		for _, item := range page.Contents {
			obj := Object{Bucket: bucket}
			if item.Key != nil {
				obj.Path = *item.Key
			}
			if item.Size != nil {
				obj.Size = *item.Size
			}
			if item.LastModified != nil {
				obj.UpdatedAt = *item.LastModified
			}
			objects = append(objects, obj)
		}
	}
	return objects, nil
}

var _ Provider = (*S3Provider)(nil)
