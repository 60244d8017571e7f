package oci

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// BlobStoreConfig configures the S3-compatible backend image layer and
// config bytes are written to, grounded on storage/s3aws.go's
// LoadDefaultConfig/NewFromConfig wiring (trimmed to the single backend
// this package needs, instead of the teacher's LakeFS/MinIO/Hetzner/S3
// quartet).
type BlobStoreConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
}

// BlobStore uploads and fetches blob bytes by content digest.
type BlobStore struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
}

// NewBlobStore connects to the configured S3-compatible endpoint.
func NewBlobStore(ctx context.Context, cfg BlobStoreConfig) (*BlobStore, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, config.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{URL: cfg.Endpoint, SigningRegion: region, HostnameImmutable: true}, nil
			})))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("oci: loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) { o.UsePathStyle = cfg.Endpoint != "" })
	return &BlobStore{client: client, uploader: manager.NewUploader(client), bucket: cfg.Bucket}, nil
}

// Put uploads blob bytes under storeKey.
func (s *BlobStore) Put(ctx context.Context, storeKey string, body io.Reader) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storeKey),
		Body:   body,
	})
	return err
}

// Exists reports whether storeKey is present in the backend, used by the
// Blob reconciler to flip Status.Verified.
func (s *BlobStore) Exists(ctx context.Context, storeKey string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storeKey),
	})
	if err != nil {
		return false, nil //nolint:nilerr // HeadObject error is treated as not-found; network faults surface on the next poll
	}
	return true, nil
}
