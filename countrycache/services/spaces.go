package services

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/countrycache/countrycache/countrycache"
)

// SpacesService uploads summary images to an S3 compatible bucket.
type SpacesService struct {
	client   *s3.Client
	bucket   string
	endpoint string
	prefix   string
}

func NewSpacesService(ctx context.Context, cfg countrycache.SpacesConfig) (*SpacesService, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.digitaloceanspaces.com", cfg.Region)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.Key, cfg.Secret, "")),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load spaces config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	return &SpacesService{
		client:   client,
		bucket:   cfg.Bucket,
		endpoint: strings.TrimSuffix(endpoint, "/"),
		prefix:   strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Key returns the object key used for name.
func (s *SpacesService) Key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Publish uploads body as a public object and returns its URL.
func (s *SpacesService) Publish(ctx context.Context, name string, body []byte, contentType string) (string, error) {
	key := s.Key(name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("no-cache"),
		ACL:          types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return s.URL(key), nil
}

// URL is the public address of key, assuming virtual-hosted style addressing.
func (s *SpacesService) URL(key string) string {
	host := strings.TrimPrefix(strings.TrimPrefix(s.endpoint, "https://"), "http://")
	return fmt.Sprintf("https://%s.%s/%s", s.bucket, host, key)
}
