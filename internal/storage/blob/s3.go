package blob

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"autolot/internal/domain"
)

// S3API is the subset of *s3.Client the store needs.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type S3Store struct {
	client  S3API
	bucket  string
	baseURL string
	timeout time.Duration
	now     func() time.Time
}

// OpenS3 builds a client from the default AWS credential chain.
func OpenS3(ctx context.Context, bucket, region, publicBaseURL string, timeout time.Duration) (*S3Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required for the s3 blob backend")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	if publicBaseURL == "" {
		publicBaseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, cfg.Region)
	}
	return NewS3Store(s3.NewFromConfig(cfg), bucket, publicBaseURL, timeout), nil
}

func NewS3Store(client S3API, bucket, publicBaseURL string, timeout time.Duration) *S3Store {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &S3Store{client: client, bucket: bucket, baseURL: publicBaseURL, timeout: timeout, now: time.Now}
}

func (s *S3Store) Upload(ctx context.Context, pathname string, r io.Reader, size int64, contentType string) (domain.StorageFile, error) {
	clean, err := CleanPath(pathname)
	if err != nil {
		return domain.StorageFile{}, err
	}
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(clean),
		Body:   r,
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return domain.StorageFile{}, storageErr("upload", clean, err)
	}
	return domain.StorageFile{
		URL:        joinURL(s.baseURL, clean),
		Pathname:   clean,
		Size:       size,
		UploadedAt: s.now().UTC(),
	}, nil
}

// Delete relies on S3 treating a missing key as success.
func (s *S3Store) Delete(ctx context.Context, pathname string) error {
	clean, err := CleanPath(pathname)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(clean),
	})
	if err != nil {
		return storageErr("delete", clean, err)
	}
	return nil
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]domain.StorageFile, error) {
	prefix, err := cleanPrefix(prefix)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	out := []domain.StorageFile{}
	in := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket), Prefix: aws.String(prefix)}
	for {
		page, err := s.client.ListObjectsV2(ctx, in)
		if err != nil {
			return nil, storageErr("list", prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			out = append(out, domain.StorageFile{
				URL:        joinURL(s.baseURL, key),
				Pathname:   key,
				Size:       aws.ToInt64(obj.Size),
				UploadedAt: aws.ToTime(obj.LastModified).UTC(),
			})
		}
		if page.NextContinuationToken == nil {
			break
		}
		in.ContinuationToken = page.NextContinuationToken
	}
	return out, nil
}
