package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"PaperIngest/internal/config"
	"PaperIngest/internal/domain"
	"PaperIngest/internal/ports"
)

// S3Sink puts blobs into a bucket under an optional prefix.
type S3Sink struct {
	client s3iface.S3API
	bucket string
	prefix string
}

var _ ports.Sink = (*S3Sink)(nil)

// NewS3Sink wraps an existing client (a fake in tests).
func NewS3Sink(client s3iface.S3API, bucket, prefix string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, prefix: prefix}
}

// OpenS3 creates a session from the default credential chain.
func OpenS3(cfg config.S3Config) (*S3Sink, error) {
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create AWS session: %w", err)
	}
	return NewS3Sink(s3.New(sess), cfg.Bucket, cfg.Prefix), nil
}

func (s *S3Sink) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

// Exists issues a HEAD request for the object.
func (s *S3Sink) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("head object: %w", err)
	}
	return true, nil
}

// Write overwrites the object with the document or the JSON record. An
// annotated document gets a JSON sidecar, written before the document so the
// document key only appears once both are stored.
func (s *S3Sink) Write(ctx context.Context, key string, record domain.Record) error {
	name, sidecar, ok, err := blobSidecar(key, record)
	if err != nil {
		return err
	}
	if ok {
		if err := s.put(ctx, name, sidecar, jsonContentType, record); err != nil {
			return fmt.Errorf("put sidecar: %w", err)
		}
	}

	body, contentType, err := blobPayload(record)
	if err != nil {
		return err
	}
	if err := s.put(ctx, key, body, contentType, record); err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (s *S3Sink) put(ctx context.Context, key string, body []byte, contentType string, record domain.Record) error {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		Metadata: map[string]*string{
			"paper-id": aws.String(record.PaperID),
			"source":   aws.String(record.Source),
		},
	})
	return err
}

func isS3NotFound(err error) bool {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return true
	}
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
