// Package archive keeps a copy of every upload and its reconstruction in
// S3-compatible object storage (MinIO, R2, AWS).
package archive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/dmitrijs2005/platerecon/internal/server/config"
	"github.com/google/uuid"
)

const resultContentType = "image/png"

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectPutter {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// Item is one archived reconstruction.
type Item struct {
	UserID              int64
	ID                  uuid.UUID
	Original            []byte
	OriginalContentType string
	Result              []byte
}

type Archive interface {
	Store(ctx context.Context, item Item) error
}

// Nop discards everything. Used when no bucket is configured.
type Nop struct{}

func (Nop) Store(context.Context, Item) error { return nil }

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Archive struct {
	client objectPutter
	bucket string
}

// NewS3Archive builds a client with static credentials against the
// configured endpoint. Path-style addressing is used so MinIO works without
// wildcard DNS.
func NewS3Archive(ctx context.Context, c *sc.Config) (*S3Archive, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.S3AccessKey,
			c.S3SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.S3BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return &S3Archive{client: client, bucket: c.S3Bucket}, nil
}

// Keys returns the object keys of the original upload and the result.
func Keys(userID int64, id uuid.UUID) (original, result string) {
	prefix := fmt.Sprintf("reconstructions/%d/%s", userID, id)
	return prefix + "/original", prefix + "/result.png"
}

func (a *S3Archive) Store(ctx context.Context, item Item) error {
	originalKey, resultKey := Keys(item.UserID, item.ID)

	contentType := item.OriginalContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := a.put(ctx, originalKey, item.Original, contentType); err != nil {
		return err
	}
	return a.put(ctx, resultKey, item.Result, resultContentType)
}

func (a *S3Archive) put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}
