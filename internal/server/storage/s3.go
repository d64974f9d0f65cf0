package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Seams for tests.
var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
		return c.DeleteObject(ctx, in, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// Options configures the S3-backed artifact store.
type Options struct {
	Namespace    string // object key prefix, e.g. "links"
	Bucket       string
	Region       string
	AccessKey    string // MINIO_ROOT_USER / AWS access key id
	SecretKey    string // MINIO_ROOT_PASSWORD / AWS secret access key
	BaseEndpoint string
}

// S3Store implements Store over an S3-compatible backend.
type S3Store struct {
	opts Options
}

// NewS3Store constructs an S3-backed artifact store.
func NewS3Store(opts Options) *S3Store {
	return &S3Store{opts: opts}
}

// ObjectKey derives the stable storage key for a link artifact:
// <namespace>/<linkID>/<role>.jwe
func (s *S3Store) ObjectKey(linkID, role string) string {
	return fmt.Sprintf("%s/%s/%s.jwe", s.opts.Namespace, linkID, role)
}

func (s *S3Store) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.opts.AccessKey,
			s.opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func (s *S3Store) Put(ctx context.Context, linkID, role string, ciphertext []byte) (string, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return "", err
	}

	key := s.ObjectKey(linkID, role)
	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.opts.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(ciphertext),
		ContentType: aws.String(EnvelopeContentType),
	})
	if err != nil {
		return "", fmt.Errorf("storage put error: %w", err)
	}

	return key, nil
}

func (s *S3Store) SignedURL(ctx context.Context, storageKey string, ttl time.Duration) (string, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return "", err
	}

	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(storageKey),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("storage presign error: %w", err)
	}

	return req.URL, nil
}

func (s *S3Store) Delete(ctx context.Context, storageKey string) error {
	client, err := s.getClient(ctx)
	if err != nil {
		return err
	}

	_, err = deleteObject(client, ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(storageKey),
	})
	if err != nil {
		return fmt.Errorf("storage delete error: %w", err)
	}
	return nil
}
