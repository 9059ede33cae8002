// Package documents stores pre-check-in uploads (insurance cards, referral
// letters) and profile avatars in S3.
package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/clinigo/platform/pkg/logging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Validation errors.
var (
	ErrTooLarge    = errors.New("documents: file exceeds the size limit")
	ErrBadMIMEType = errors.New("documents: file type not allowed")
	ErrNotEnabled  = errors.New("documents: storage not configured")
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Document is the stored-object metadata returned to callers.
type Document struct {
	Key         string    `json:"key"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Store validates and persists uploads. With no bucket configured it is
// disabled and Upload degrades to ErrNotEnabled, which callers surface as
// a warning rather than failing the whole check-in.
type Store struct {
	bucket       string
	s3Client     S3API
	maxBytes     int64
	allowedMIMEs map[string]struct{}
	tracer       trace.Tracer
	logger       *logging.Logger
}

// NewStore creates a document store. If bucket is empty all operations
// report ErrNotEnabled.
func NewStore(s3Client S3API, bucket string, maxBytes int64, allowedMIMETypes []string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	allowed := make(map[string]struct{}, len(allowedMIMETypes))
	for _, m := range allowedMIMETypes {
		allowed[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}
	return &Store{
		bucket:       bucket,
		s3Client:     s3Client,
		maxBytes:     maxBytes,
		allowedMIMEs: allowed,
		tracer:       otel.Tracer("clinigo.internal.documents"),
		logger:       logger,
	}
}

// Enabled reports whether a bucket is configured.
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// Validate checks size and MIME type without touching S3.
func (s *Store) Validate(contentType string, sizeBytes int64) error {
	if s.maxBytes > 0 && sizeBytes > s.maxBytes {
		return ErrTooLarge
	}
	if len(s.allowedMIMEs) > 0 {
		if _, ok := s.allowedMIMEs[strings.ToLower(contentType)]; !ok {
			return ErrBadMIMEType
		}
	}
	return nil
}

// Upload stores one file under the clinic/patient prefix.
func (s *Store) Upload(ctx context.Context, clinicID, patientID, fileName, contentType string, body []byte) (*Document, error) {
	if !s.Enabled() {
		return nil, ErrNotEnabled
	}
	ctx, span := s.tracer.Start(ctx, "documents.upload")
	defer span.End()
	if err := s.Validate(contentType, int64(len(body))); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("checkin/%s/%s/%s%s", clinicID, patientID, uuid.NewString(), path.Ext(fileName))
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("documents: s3 put %s: %w", key, err)
	}

	s.logger.Info("document uploaded", "key", key, "size_bytes", len(body), "content_type", contentType)
	return &Document{
		Key:         key,
		FileName:    fileName,
		ContentType: contentType,
		SizeBytes:   int64(len(body)),
		UploadedAt:  time.Now().UTC(),
	}, nil
}

// Fetch streams a stored document back.
func (s *Store) Fetch(ctx context.Context, key string) ([]byte, string, error) {
	if !s.Enabled() {
		return nil, "", ErrNotEnabled
	}
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("documents: s3 get %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("documents: read %s: %w", key, err)
	}
	contentType := ""
	if resp.ContentType != nil {
		contentType = *resp.ContentType
	}
	return data, contentType, nil
}

// Delete removes a stored document.
func (s *Store) Delete(ctx context.Context, key string) error {
	if !s.Enabled() {
		return ErrNotEnabled
	}
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("documents: s3 delete %s: %w", key, err)
	}
	return nil
}
