// Package blob stores claim documents in S3 and hands back the object key
// that is recorded on the claim.
package blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/insurai/claimdesk/internal/config"
)

// Store saves a document and returns its relative key.
type Store interface {
	Put(ctx context.Context, claimID uint, filename, contentType string, body io.Reader) (string, error)
}

// putter abstracts the S3 method we use, enabling test fakes.
type putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store writes documents to one bucket under an optional key prefix.
type S3Store struct {
	client putter
	bucket string
	prefix string
}

// New builds an S3Store from configuration. A configured endpoint (for
// example a local S3-compatible server) switches to path-style addressing.
func New(ctx context.Context, cfg config.BlobConfig) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("blob: bucket is required")
	}
	awsConf, err := awsCfg.LoadDefaultConfig(ctx, awsCfg.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("blob: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsConf, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// BuildKey constructs the object key for a claim document. The original
// file name only contributes its extension.
func BuildKey(prefix string, claimID uint, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join(strings.Trim(prefix, "/"), "claims", fmt.Sprint(claimID), uuid.NewString()+ext)
}

// Put uploads body and returns its key.
func (s *S3Store) Put(ctx context.Context, claimID uint, filename, contentType string, body io.Reader) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := BuildKey(s.prefix, claimID, filename)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"claim_id":      fmt.Sprint(claimID),
			"original_name": filepath.Base(filename),
		},
	})
	if err != nil {
		return "", fmt.Errorf("blob: put %s: %w", key, err)
	}
	return key, nil
}
