package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/gatherguru/server/internal/config"
)

// S3Uploader stores files in an S3-compatible bucket. Files are buffered in
// memory (capped at MaxFileSize by validation) before upload. URLs point at
// CloudFront when a distribution is configured, otherwise at the bucket.
type S3Uploader struct {
	client       *s3.Client
	bucket       string
	region       string
	cloudFrontID string
	logger       zerolog.Logger
}

func NewS3Uploader(ctx context.Context, cfg config.UploadConfig, logger zerolog.Logger) (*S3Uploader, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKey != "" && cfg.AWSSecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKey, cfg.AWSSecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.S3EndpointURL)
		}
	})

	return &S3Uploader{
		client:       client,
		bucket:       cfg.S3Bucket,
		region:       cfg.AWSRegion,
		cloudFrontID: cfg.CloudFrontID,
		logger:       logger.With().Str("component", "upload.s3").Logger(),
	}, nil
}

func (u *S3Uploader) Store(ctx context.Context, file File, category string) (Result, error) {
	if err := Validate(file); err != nil {
		return Result{}, err
	}
	if err := validCategory(category); err != nil {
		return Result{}, err
	}

	buf, err := io.ReadAll(io.LimitReader(file.Reader, MaxFileSize+1))
	if err != nil {
		return Result{}, fmt.Errorf("read file: %w", err)
	}
	if int64(len(buf)) > MaxFileSize {
		return Result{}, ErrTooLarge
	}

	key := fmt.Sprintf("%s/%d-%s", category, time.Now().UnixMilli(), path.Base(file.Name))

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf),
		ContentType: aws.String(file.ContentType),
		Metadata:    map[string]string{"original-name": file.Name},
	})
	if err != nil {
		return Result{}, fmt.Errorf("upload to s3: %w", err)
	}

	u.logger.Debug().Str("bucket", u.bucket).Str("key", key).Int("size", len(buf)).Msg("stored object")

	return Result{
		URL:          u.objectURL(key),
		Key:          key,
		OriginalName: file.Name,
	}, nil
}

// Delete removes an object. S3 delete is idempotent at the API level;
// failures from the service are surfaced as errors.
func (u *S3Uploader) Delete(ctx context.Context, key string) (bool, error) {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return false, fmt.Errorf("delete from s3: %w", err)
	}
	return true, nil
}

func (u *S3Uploader) objectURL(key string) string {
	if u.cloudFrontID != "" {
		return fmt.Sprintf("https://%s.cloudfront.net/%s", u.cloudFrontID, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key)
}
