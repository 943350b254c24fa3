package crudboot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// S3API is the part of the S3 client the file service uses.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Presigner signs object URLs without calling S3.
type S3Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// PathStyle is needed by most S3 compatible stores such as MinIO.
	PathStyle bool
}

// LoadS3ConfigFromEnv reads <prefix>_BUCKET, <prefix>_REGION,
// <prefix>_ENDPOINT, <prefix>_ACCESS_KEY, <prefix>_SECRET_KEY and
// <prefix>_PATH_STYLE. It returns nil when no bucket is configured.
func LoadS3ConfigFromEnv(prefix string) *S3Config {
	bucket := os.Getenv(prefix + "_BUCKET")
	if bucket == "" {
		return nil
	}
	c := &S3Config{
		Bucket:    bucket,
		Region:    os.Getenv(prefix + "_REGION"),
		Endpoint:  os.Getenv(prefix + "_ENDPOINT"),
		AccessKey: os.Getenv(prefix + "_ACCESS_KEY"),
		SecretKey: os.Getenv(prefix + "_SECRET_KEY"),
		PathStyle: os.Getenv(prefix+"_PATH_STYLE") == "true",
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	return c
}

// NewClient builds an S3 client from the default AWS configuration.
func (c *S3Config) NewClient(ctx context.Context) (*s3.Client, error) {
	opts := []func(*awsConfig.LoadOptions) error{awsConfig.WithRegion(c.Region)}
	if c.AccessKey != "" && c.SecretKey != "" {
		opts = append(opts, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, ""),
		))
	}
	cfg, err := awsConfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg, c.apply), nil
}

func (c *S3Config) apply(o *s3.Options) {
	if c.Endpoint != "" {
		o.BaseEndpoint = aws.String(c.Endpoint)
	}
	o.UsePathStyle = c.PathStyle
}

type S3FileService struct {
	client    S3API
	presigner S3Presigner
	bucket    string
	logger    *zap.Logger
}

func NewS3FileService(client S3API, presigner S3Presigner, bucket string, logger *zap.Logger) *S3FileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3FileService{
		client:    client,
		presigner: presigner,
		bucket:    bucket,
		logger:    logger.Named("files").With(zap.String("bucket", bucket)),
	}
}

// NewS3FileServiceFromConfig connects to the bucket described by config.
func NewS3FileServiceFromConfig(ctx context.Context, config *S3Config, logger *zap.Logger) (*S3FileService, error) {
	client, err := config.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return NewS3FileService(client, s3.NewPresignClient(client), config.Bucket, logger), nil
}

func (s *S3FileService) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return false, nil
	}
	return false, fmt.Errorf("head %s: %w", key, err)
}

func (s *S3FileService) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	return out.Body, nil
}

func (s *S3FileService) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	s.logger.Info("file uploaded", zap.String("key", key))
	return nil
}

func (s *S3FileService) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *S3FileService) DownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return req.URL, nil
}

func (s *S3FileService) UploadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to generate upload presigned URL: %w", err)
	}
	return req.URL, nil
}
