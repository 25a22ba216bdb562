// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package avatar

import (
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/samber/oops"

	"github.com/holomush/accountd/internal/account"
)

// ObjectPutter is the S3 call S3Store needs. *s3.Client satisfies it.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures NewS3Client and S3Store.
type S3Options struct {
	Bucket string
	Region string
	// Endpoint overrides the AWS endpoint (MinIO, localstack). Enables path-style addressing.
	Endpoint string
	// PublicURL is the base avatars are served from. Defaults to the
	// virtual-hosted bucket URL, or Endpoint/Bucket when Endpoint is set.
	PublicURL       string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Store uploads avatars to an S3 bucket under the avatars/ prefix.
type S3Store struct {
	client    ObjectPutter
	bucket    string
	publicURL string
}

var _ account.AvatarStore = (*S3Store)(nil)

var loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

// NewS3Client builds an S3 client. Static credentials are used when both
// keys are set; otherwise the default AWS credential chain applies.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := loadDefaultAWSConfig(ctx, loadOpts...)
	if err != nil {
		return nil, oops.Code("AVATAR_S3_CONFIG_FAILED").With("region", opts.Region).Wrap(err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewS3Store creates an S3-backed store.
func NewS3Store(client ObjectPutter, opts S3Options) (*S3Store, error) {
	if client == nil {
		return nil, oops.Code("AVATAR_S3_CONFIG_FAILED").Errorf("s3 client is required")
	}
	if opts.Bucket == "" {
		return nil, oops.Code("AVATAR_S3_CONFIG_FAILED").Errorf("bucket is required")
	}
	return &S3Store{
		client:    client,
		bucket:    opts.Bucket,
		publicURL: strings.TrimRight(publicURL(opts), "/"),
	}, nil
}

func publicURL(opts S3Options) string {
	switch {
	case opts.PublicURL != "":
		return opts.PublicURL
	case opts.Endpoint != "":
		return strings.TrimRight(opts.Endpoint, "/") + "/" + opts.Bucket
	default:
		return "https://" + opts.Bucket + ".s3." + opts.Region + ".amazonaws.com"
	}
}

// Save uploads content as avatars/<name> and returns its public URL.
func (s *S3Store) Save(ctx context.Context, name, contentType string, content io.Reader) (string, error) {
	key := URLPrefix + "/" + name
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   content,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", oops.Code("AVATAR_SAVE_FAILED").
			With("bucket", s.bucket).
			With("key", key).
			Wrap(err)
	}
	return s.publicURL + "/" + key, nil
}
