// Package s3 stores objects in an S3 bucket (or any S3-compatible service).
//
// Keys mirror the materialized path: <key_prefix><path>/<fileName>. S3 has no
// directories, so MkdirAll is a no-op and RemoveAll deletes every key below
// the directory prefix.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/mitchellh/mapstructure"

	"foldervault/internal/domain/storage"
)

const (
	// MinPartSize is the smallest part S3 accepts, except for the last one
	MinPartSize = 5 * 1024 * 1024

	// MaxPartSize is the largest part S3 accepts
	MaxPartSize = 5 * 1024 * 1024 * 1024

	// deleteBatchSize is the DeleteObjects limit
	deleteBatchSize = 1000

	defaultPartSize   = 8 * 1024 * 1024
	defaultMaxRetries = 10
)

// API is the subset of *s3.Client used by the backend
type API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// Options is the storage.s3 configuration map
type Options struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PartSize        int64  `mapstructure:"part_size"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

// DecodeOptions decodes the raw storage.s3 map. Values coming from the
// environment arrive as strings and are converted.
func DecodeOptions(raw map[string]any) (Options, error) {
	var opts Options
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &opts,
	})
	if err != nil {
		return opts, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return opts, fmt.Errorf("failed to decode s3 storage config: %w", err)
	}

	if opts.Bucket == "" {
		return opts, errors.New("s3 storage: bucket is required")
	}
	if opts.Region == "" {
		return opts, errors.New("s3 storage: region is required")
	}
	if opts.PartSize == 0 {
		opts.PartSize = defaultPartSize
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultMaxRetries
	}

	return opts, nil
}

// NewClient builds an S3 client from options. Static credentials are used
// when both keys are set; otherwise the default credential chain applies.
func NewClient(ctx context.Context, opts Options) (*s3.Client, error) {
	configOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithRetryer(func() aws.Retryer {
			return retry.NewStandard(func(o *retry.StandardOptions) {
				o.MaxAttempts = opts.MaxRetries
			})
		}),
	}

	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		configOptions = append(configOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		// MinIO and LocalStack need path-style addressing
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Backend implements storage.Backend on S3
type Backend struct {
	client    API
	bucket    string
	keyPrefix string
	partSize  int64
	logger    *slog.Logger
}

// New verifies bucket access and returns a backend. The bucket must exist.
func New(ctx context.Context, client API, opts Options, logger *slog.Logger) (*Backend, error) {
	if client == nil {
		return nil, errors.New("s3 client is required")
	}
	if opts.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	partSize := opts.PartSize
	if partSize == 0 {
		partSize = defaultPartSize
	}
	if partSize < MinPartSize {
		return nil, fmt.Errorf("part size must be at least 5MB, got %d bytes", partSize)
	}
	if partSize > MaxPartSize {
		return nil, fmt.Errorf("part size must be at most 5GB, got %d bytes", partSize)
	}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(opts.Bucket)}); err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", opts.Bucket, err)
	}

	logger.Info("s3 storage initialized",
		"bucket", opts.Bucket,
		"region", opts.Region,
		"key_prefix", opts.KeyPrefix,
		"part_size", partSize,
	)

	return &Backend{
		client:    client,
		bucket:    opts.Bucket,
		keyPrefix: opts.KeyPrefix,
		partSize:  partSize,
		logger:    logger,
	}, nil
}

// objectKey maps dir/name to a bucket key
func (b *Backend) objectKey(dir, name string) string {
	dir = strings.Trim(dir, "/")
	if dir == "" {
		return b.keyPrefix + name
	}
	return b.keyPrefix + dir + "/" + name
}

// dirPrefix is the key prefix shared by everything below dir
func (b *Backend) dirPrefix(dir string) string {
	return b.keyPrefix + strings.Trim(dir, "/") + "/"
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid object name %q", name)
	}
	return nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

// isConditionFailed reports a lost If-None-Match race: the key was written
// by someone else between Create and Commit.
func isConditionFailed(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return true
	}
	return false
}

// MkdirAll is a no-op: prefixes exist as soon as an object is written below them
func (b *Backend) MkdirAll(ctx context.Context, dir string) error {
	return ctx.Err()
}

// Create starts a buffered writer for dir/name. An existing key is never
// overwritten: the HeadObject check fails fast, and Commit writes with
// If-None-Match so a key created in between surfaces as ErrObjectExists.
func (b *Backend) Create(ctx context.Context, dir, name string) (storage.ObjectWriter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validName(name); err != nil {
		return nil, err
	}

	key := b.objectKey(dir, name)

	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	switch {
	case err == nil:
		return nil, fmt.Errorf("%s: %w", key, storage.ErrObjectExists)
	case !isNotFound(err):
		return nil, fmt.Errorf("failed to check object existence: %w", err)
	}

	return &objectWriter{
		backend: b,
		ctx:     ctx,
		key:     key,
	}, nil
}

// Open streams dir/name from the bucket
func (b *Backend) Open(ctx context.Context, dir, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validName(name); err != nil {
		return nil, err
	}

	key := b.objectKey(dir, name)
	result, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", key, storage.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}

	return result.Body, nil
}

// Remove deletes dir/name. S3 reports success for missing keys.
func (b *Backend) Remove(ctx context.Context, dir, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validName(name); err != nil {
		return err
	}

	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(dir, name)),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// RemoveAll deletes every key below dir in batches of up to 1000
func (b *Backend) RemoveAll(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.Trim(dir, "/") == "" {
		return errors.New("refusing to remove the storage root")
	}

	prefix := b.dirPrefix(dir)
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	})

	removed := 0
	for paginator.HasMorePages() {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list objects: %w", err)
		}

		keys := make([]string, 0, len(page.Contents))
		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
		if err := b.deleteKeys(ctx, keys); err != nil {
			return err
		}
		removed += len(keys)
	}

	b.logger.Debug("s3 prefix removed", "prefix", prefix, "objects", removed)
	return nil
}

func (b *Backend) deleteKeys(ctx context.Context, keys []string) error {
	for i := 0; i < len(keys); i += deleteBatchSize {
		end := min(i+deleteBatchSize, len(keys))

		objects := make([]types.ObjectIdentifier, 0, end-i)
		for _, key := range keys[i:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
		}

		result, err := b.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(b.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects: %w", err)
		}

		if len(result.Errors) > 0 {
			first := result.Errors[0]
			return fmt.Errorf("failed to delete %d objects, first %s: %s",
				len(result.Errors), aws.ToString(first.Key), aws.ToString(first.Message))
		}
	}
	return nil
}

// objectWriter buffers bytes and switches to a multipart upload once a full
// part is available. Small objects are sent with a single PutObject.
type objectWriter struct {
	backend *Backend
	ctx     context.Context
	key     string

	buf       bytes.Buffer
	uploadID  string
	parts     []types.CompletedPart
	committed bool
	closed    bool
}

func (w *objectWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errors.New("write to closed object writer")
	}

	n, _ := w.buf.Write(p)
	for int64(w.buf.Len()) >= w.backend.partSize {
		if err := w.flushPart(w.ctx, w.backend.partSize); err != nil {
			return 0, err
		}
	}
	return n, nil
}

// flushPart uploads the next size bytes of the buffer as one part
func (w *objectWriter) flushPart(ctx context.Context, size int64) error {
	b := w.backend

	if w.uploadID == "" {
		result, err := b.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(w.key),
		})
		if err != nil {
			return fmt.Errorf("failed to create multipart upload: %w", err)
		}
		w.uploadID = aws.ToString(result.UploadId)
	}

	partNumber := int32(len(w.parts) + 1)
	data := w.buf.Next(int(size))

	result, err := b.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(b.bucket),
		Key:        aws.String(w.key),
		UploadId:   aws.String(w.uploadID),
		PartNumber: aws.Int32(partNumber),
		Body:       bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload part %d: %w", partNumber, err)
	}

	w.parts = append(w.parts, types.CompletedPart{
		ETag:       result.ETag,
		PartNumber: aws.Int32(partNumber),
	})
	return nil
}

// Commit sends what is buffered and makes the object visible
func (w *objectWriter) Commit(ctx context.Context) error {
	if w.closed {
		return errors.New("object writer already closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	w.closed = true
	b := w.backend

	if w.uploadID == "" {
		_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(b.bucket),
			Key:           aws.String(w.key),
			Body:          bytes.NewReader(w.buf.Bytes()),
			ContentLength: aws.Int64(int64(w.buf.Len())),
			IfNoneMatch:   aws.String("*"),
		})
		if err != nil {
			if isConditionFailed(err) {
				return fmt.Errorf("%s: %w", w.key, storage.ErrObjectExists)
			}
			return fmt.Errorf("failed to put object: %w", err)
		}
		w.buf.Reset()
		w.committed = true
		return nil
	}

	if w.buf.Len() > 0 {
		if err := w.flushPart(ctx, int64(w.buf.Len())); err != nil {
			return err
		}
	}

	_, err := b.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(b.bucket),
		Key:      aws.String(w.key),
		UploadId: aws.String(w.uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: w.parts,
		},
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		if isConditionFailed(err) {
			_ = w.abortUpload(ctx)
			return fmt.Errorf("%s: %w", w.key, storage.ErrObjectExists)
		}
		return fmt.Errorf("failed to complete multipart upload: %w", err)
	}

	w.committed = true
	return nil
}

// Abort drops the multipart upload, or the object itself once committed
func (w *objectWriter) Abort(ctx context.Context) error {
	w.closed = true
	w.buf.Reset()
	b := w.backend

	if w.committed {
		w.committed = false
		_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(w.key),
		})
		if err != nil && !isNotFound(err) {
			return fmt.Errorf("failed to delete object: %w", err)
		}
		return nil
	}

	return w.abortUpload(ctx)
}

func (w *objectWriter) abortUpload(ctx context.Context) error {
	if w.uploadID == "" {
		return nil
	}

	b := w.backend
	_, err := b.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(b.bucket),
		Key:      aws.String(w.key),
		UploadId: aws.String(w.uploadID),
	})
	w.uploadID = ""
	if err != nil {
		var noSuchUpload *types.NoSuchUpload
		if !errors.As(err, &noSuchUpload) {
			b.logger.Warn("failed to abort multipart upload", "key", w.key, "error", err)
			return fmt.Errorf("failed to abort multipart upload: %w", err)
		}
	}
	return nil
}
