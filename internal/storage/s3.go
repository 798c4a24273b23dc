// Package storage uploads export archives to S3.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"captionstudio/internal/config"
)

// Uploader pushes a finished export archive to remote storage and returns
// its public URL.
type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader) (string, error)
	TestConnection(ctx context.Context) error
}

type s3Uploader struct {
	client *s3.Client
	bucket string
	region string
}

// NewS3Uploader builds an uploader from static credentials. Callers treat
// a nil Uploader as uploads disabled.
func NewS3Uploader(cfg config.S3Config) (Uploader, error) {
	credProvider := aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     cfg.AccessKey,
			SecretAccessKey: cfg.SecretKey,
		}, nil
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credProvider),
	)
	if err != nil {
		return nil, err
	}

	return &s3Uploader{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		region: cfg.Region,
	}, nil
}

func (u *s3Uploader) Upload(ctx context.Context, key string, body io.Reader) (string, error) {
	uploader := manager.NewUploader(u.client)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key)
	log.Info().Str("bucket", u.bucket).Str("key", key).Msg("Export archive uploaded")
	return url, nil
}

func (u *s3Uploader) TestConnection(ctx context.Context) error {
	// List at most one key to keep the probe cheap.
	_, err := u.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(u.bucket),
		MaxKeys: aws.Int32(1),
	})
	log.Err(err).Msg("S3 connection test")

	return err
}
