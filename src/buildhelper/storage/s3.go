package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/buildhelper/archive"
)

// S3Config holds the S3 storage configuration
type S3Config struct {
	// Endpoint is the S3-compatible endpoint URL (e.g., "http://minio:9000")
	Endpoint string `mapstructure:"endpoint"`

	// Region is the S3 region (e.g., "us-east-1")
	Region string `mapstructure:"region"`

	// Bucket is the bucket name for storing artifacts
	Bucket string `mapstructure:"bucket"`

	// AccessKeyID is the S3 access key
	AccessKeyID string `mapstructure:"access_key_id"`

	// SecretAccessKey is the S3 secret key
	SecretAccessKey string `mapstructure:"secret_access_key"`

	// UsePathStyle enables path-style addressing (required for most
	// S3-compatible storage)
	UsePathStyle bool `mapstructure:"use_path_style"`
}

// S3Store implements Store using S3-compatible object storage. Used when a
// pipeline mirrors its artifacts outside the Actions retention window.
type S3Store struct {
	s3Client *s3.Client
	config   S3Config
	tmpDir   string
}

// NewS3 creates a new S3 artifact store.
func NewS3(cfg S3Config, tmpDir string) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 store requires a bucket")
	}
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}

	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.Endpoint,
				SigningRegion:     cfg.Region,
				HostnameImmutable: true,
			}, nil
		},
	)

	awsCfg := aws.Config{
		Region:                      cfg.Region,
		Credentials:                 credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		EndpointResolverWithOptions: customResolver,
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Store{
		s3Client: s3Client,
		config:   cfg,
		tmpDir:   tmpDir,
	}, nil
}

// objectKey returns the bucket key for an artifact name.
func (s *S3Store) objectKey(name string) string {
	return name + ".zip"
}

// Upload packs the payload and puts it into the bucket.
func (s *S3Store) Upload(ctx context.Context, name, path string, opts UploadOptions) error {
	zipPath := filepath.Join(s.tmpDir, fmt.Sprintf("upload-%s.zip", uuid.NewString()))
	if err := archive.CreateZip(zipPath, path, opts.CompressionLevel); err != nil {
		return fmt.Errorf("failed to pack %s: %w", name, err)
	}
	defer os.Remove(zipPath)

	file, err := os.Open(zipPath)
	if err != nil {
		return fmt.Errorf("failed to open payload: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat payload: %w", err)
	}

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.config.Bucket),
		Key:           aws.String(s.objectKey(name)),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("application/zip"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", name, err)
	}
	return nil
}

// Download fetches the artifact zip into destDir.
func (s *S3Store) Download(ctx context.Context, name, destDir string) (string, error) {
	output, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.objectKey(name)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to download object %s: %w", name, err)
	}
	defer output.Body.Close()

	destPath := filepath.Join(destDir, name+".zip")
	file, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, output.Body); err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("failed to save object %s: %w", name, err)
	}
	return destPath, nil
}

// Exists checks if an object exists in the bucket.
func (s *S3Store) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.objectKey(name)),
	})
	if err != nil {
		return false, nil
	}
	return true, nil
}

// Delete deletes an object from the bucket.
func (s *S3Store) Delete(ctx context.Context, name string) error {
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.objectKey(name)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", name, err)
	}
	return nil
}

// List returns the stored artifact names.
func (s *S3Store) List(ctx context.Context) ([]string, error) {
	var names []string

	paginator := s3.NewListObjectsV2Paginator(s.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.config.Bucket),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, ".zip") {
				names = append(names, strings.TrimSuffix(key, ".zip"))
			}
		}
	}

	return names, nil
}

// Type returns the store backend type
func (s *S3Store) Type() string {
	return "s3"
}
