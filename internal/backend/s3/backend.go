package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/PreciousTrainer/citra/pkg/fserr"
	"github.com/PreciousTrainer/citra/pkg/types"
)

// Config holds the connection settings for one remote archive.
type Config struct {
	Bucket         string `yaml:"bucket"`
	Region         string `yaml:"region"`
	Endpoint       string `yaml:"endpoint"`
	Prefix         string `yaml:"prefix"`
	ForcePathStyle bool   `yaml:"force_path_style"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	MaxRetries     int    `yaml:"max_retries"`
}

// Factory opens remote archives backed by a single bucket. The archive
// path is ignored; every open shares the configured prefix.
type Factory struct {
	name   string
	cfg    Config
	client *s3.Client
	logger *slog.Logger
}

// NewFactory builds the S3 client and verifies the bucket exists.
func NewFactory(ctx context.Context, name string, cfg Config) (*Factory, error) {
	if cfg.Bucket == "" {
		return nil, fserr.New(fserr.CodeInvalidArgument, "remote bucket not configured")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithRetryMaxAttempts(cfg.MaxRetries),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	})

	f := &Factory{
		name:   name,
		cfg:    cfg,
		client: client,
		logger: slog.Default().With("component", "s3-factory", "bucket", cfg.Bucket),
	}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("bucket %s not reachable: %w", cfg.Bucket, err)
	}
	f.logger.Debug("remote archive ready", "prefix", cfg.Prefix)
	return f, nil
}

func (f *Factory) Name() string { return f.name }

func (f *Factory) Open(ctx context.Context, p types.Path) (types.ArchiveBackend, error) {
	return &Backend{
		name:   f.name,
		client: f.client,
		bucket: f.cfg.Bucket,
		prefix: strings.Trim(f.cfg.Prefix, "/"),
		logger: slog.Default().With("component", "s3-backend", "bucket", f.cfg.Bucket),
	}, nil
}

// Format deletes every object under the prefix. Remote archives carry
// no format metadata; a freshly formatted archive is an empty prefix.
func (f *Factory) Format(ctx context.Context, p types.Path, info types.FormatInfo) error {
	b, err := f.Open(ctx, p)
	if err != nil {
		return err
	}
	defer b.Close()
	return b.DeleteDirectoryRecursively(ctx, types.EmptyPath())
}

func (f *Factory) FormatInfo(ctx context.Context, p types.Path) (types.FormatInfo, error) {
	return types.FormatInfo{}, fserr.New(fserr.CodeUnimplemented, "remote archives carry no format info")
}

// objectClient is the slice of the S3 API the backend calls, carved out
// so tests can run against an in-memory store.
type objectClient interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, opts ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Backend serves one opened remote archive.
type Backend struct {
	name   string
	client objectClient
	bucket string
	prefix string
	logger *slog.Logger
}

func (b *Backend) Name() string { return b.name }

// key maps a guest path onto an object key under the prefix. The empty
// guest path maps to the prefix itself.
func (b *Backend) key(p types.Path) (string, error) {
	s, ok := p.AsString()
	if !ok && !p.IsEmpty() {
		return "", fserr.Newf(fserr.CodeInvalidArgument, "unsupported path variant %v", p.Type())
	}
	clean := strings.TrimPrefix(path.Clean("/"+s), "/")
	if b.prefix == "" {
		return clean, nil
	}
	if clean == "" {
		return b.prefix, nil
	}
	return b.prefix + "/" + clean, nil
}

func (b *Backend) translateError(err error, op, key string) error {
	var noKey *s3types.NoSuchKey
	var notFound *s3types.NotFound
	switch {
	case errors.As(err, &noKey), errors.As(err, &notFound):
		return fserr.Wrap(err, fserr.CodeNotFound, op, key)
	default:
		return fserr.Wrap(err, fserr.CodeBackendFailure, op, key)
	}
}

func (b *Backend) head(ctx context.Context, key string) (*s3.HeadObjectOutput, error) {
	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, b.translateError(err, "HeadObject", key)
	}
	return out, nil
}

func (b *Backend) OpenFile(ctx context.Context, p types.Path, mode types.Mode) (types.FileBackend, error) {
	key, err := b.key(p)
	if err != nil {
		return nil, err
	}
	head, err := b.head(ctx, key)
	if err != nil {
		if fserr.IsCode(err, fserr.CodeNotFound) && mode.Creates() {
			if perr := b.put(ctx, key, nil); perr != nil {
				return nil, perr
			}
			return newRemoteFile(b, key, nil, mode), nil
		}
		return nil, err
	}

	// Writable opens buffer the whole object so partial writes can be
	// flushed back as one PutObject.
	if mode.CanWrite() {
		data, err := b.get(ctx, key, 0, 0)
		if err != nil {
			return nil, err
		}
		return newRemoteFile(b, key, data, mode), nil
	}
	f := newRemoteFile(b, key, nil, mode)
	f.size = uint64(aws.ToInt64(head.ContentLength))
	return f, nil
}

func (b *Backend) CreateFile(ctx context.Context, p types.Path, size uint64) error {
	key, err := b.key(p)
	if err != nil {
		return err
	}
	if _, err := b.head(ctx, key); err == nil {
		return fserr.Newf(fserr.CodeAlreadyExists, "%s", p)
	} else if !fserr.IsCode(err, fserr.CodeNotFound) {
		return err
	}
	return b.put(ctx, key, make([]byte, size))
}

func (b *Backend) DeleteFile(ctx context.Context, p types.Path) error {
	key, err := b.key(p)
	if err != nil {
		return err
	}
	if _, err := b.head(ctx, key); err != nil {
		return err
	}
	_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return b.translateError(err, "DeleteObject", key)
	}
	return nil
}

func (b *Backend) RenameFile(ctx context.Context, src, dst types.Path) error {
	srcKey, err := b.key(src)
	if err != nil {
		return err
	}
	dstKey, err := b.key(dst)
	if err != nil {
		return err
	}
	if _, err := b.head(ctx, srcKey); err != nil {
		return err
	}
	if _, err := b.head(ctx, dstKey); err == nil {
		return fserr.Newf(fserr.CodeAlreadyExists, "%s", dst)
	} else if !fserr.IsCode(err, fserr.CodeNotFound) {
		return err
	}
	_, err = b.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(b.bucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(b.bucket + "/" + srcKey),
	})
	if err != nil {
		return b.translateError(err, "CopyObject", srcKey)
	}
	_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(srcKey),
	})
	if err != nil {
		return b.translateError(err, "DeleteObject", srcKey)
	}
	return nil
}

// marker returns the zero-byte object key that records an empty
// directory's existence.
func marker(key string) string { return key + "/" }

// list walks every page of the listing, following continuation tokens
// so prefixes holding more than one page of objects are seen in full.
func (b *Backend) list(ctx context.Context, prefix string, delimited bool) ([]s3types.Object, []s3types.CommonPrefix, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	}
	if delimited {
		input.Delimiter = aws.String("/")
	}
	var objects []s3types.Object
	var prefixes []s3types.CommonPrefix
	for {
		out, err := b.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, nil, b.translateError(err, "ListObjectsV2", prefix)
		}
		objects = append(objects, out.Contents...)
		prefixes = append(prefixes, out.CommonPrefixes...)
		if !aws.ToBool(out.IsTruncated) {
			return objects, prefixes, nil
		}
		input.ContinuationToken = out.NextContinuationToken
	}
}

func (b *Backend) OpenDirectory(ctx context.Context, p types.Path) (types.DirectoryBackend, error) {
	key, err := b.key(p)
	if err != nil {
		return nil, err
	}
	prefix := ""
	if key != "" {
		prefix = marker(key)
	}
	objects, prefixes, err := b.list(ctx, prefix, true)
	if err != nil {
		return nil, err
	}
	if prefix != "" && len(objects) == 0 && len(prefixes) == 0 {
		return nil, fserr.Newf(fserr.CodeNotFound, "%s", p)
	}

	var entries []types.Entry
	for _, obj := range objects {
		name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
		if name == "" {
			continue // the directory marker itself
		}
		entries = append(entries, types.Entry{
			Name: name,
			Size: uint64(aws.ToInt64(obj.Size)),
		})
	}
	for _, cp := range prefixes {
		name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
		entries = append(entries, types.Entry{Name: name, IsDirectory: true})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return newRemoteDirectory(entries), nil
}

func (b *Backend) CreateDirectory(ctx context.Context, p types.Path) error {
	key, err := b.key(p)
	if err != nil {
		return err
	}
	if key == "" {
		return fserr.New(fserr.CodeAlreadyExists, "archive root")
	}
	if _, err := b.head(ctx, marker(key)); err == nil {
		return fserr.Newf(fserr.CodeAlreadyExists, "%s", p)
	} else if !fserr.IsCode(err, fserr.CodeNotFound) {
		return err
	}
	return b.put(ctx, marker(key), nil)
}

func (b *Backend) DeleteDirectory(ctx context.Context, p types.Path) error {
	key, err := b.key(p)
	if err != nil {
		return err
	}
	objects, prefixes, err := b.list(ctx, marker(key), true)
	if err != nil {
		return err
	}
	if len(objects) == 0 && len(prefixes) == 0 {
		return fserr.Newf(fserr.CodeNotFound, "%s", p)
	}
	if len(prefixes) > 0 {
		return fserr.Newf(fserr.CodeDirectoryNotEmpty, "%s", p)
	}
	for _, obj := range objects {
		if aws.ToString(obj.Key) != marker(key) {
			return fserr.Newf(fserr.CodeDirectoryNotEmpty, "%s", p)
		}
	}
	_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(marker(key)),
	})
	if err != nil {
		return b.translateError(err, "DeleteObject", marker(key))
	}
	return nil
}

func (b *Backend) DeleteDirectoryRecursively(ctx context.Context, p types.Path) error {
	key, err := b.key(p)
	if err != nil {
		return err
	}
	prefix := ""
	if key != "" {
		prefix = marker(key)
	}
	objects, _, err := b.list(ctx, prefix, false)
	if err != nil {
		return err
	}
	if prefix != "" && len(objects) == 0 {
		return fserr.Newf(fserr.CodeNotFound, "%s", p)
	}
	for _, obj := range objects {
		_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    obj.Key,
		})
		if err != nil {
			return b.translateError(err, "DeleteObject", aws.ToString(obj.Key))
		}
	}
	return nil
}

func (b *Backend) RenameDirectory(ctx context.Context, src, dst types.Path) error {
	srcKey, err := b.key(src)
	if err != nil {
		return err
	}
	dstKey, err := b.key(dst)
	if err != nil {
		return err
	}
	objects, _, err := b.list(ctx, marker(srcKey), false)
	if err != nil {
		return err
	}
	if len(objects) == 0 {
		return fserr.Newf(fserr.CodeNotFound, "%s", src)
	}
	for _, obj := range objects {
		old := aws.ToString(obj.Key)
		next := marker(dstKey) + strings.TrimPrefix(old, marker(srcKey))
		_, err := b.client.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(b.bucket),
			Key:        aws.String(next),
			CopySource: aws.String(b.bucket + "/" + old),
		})
		if err != nil {
			return b.translateError(err, "CopyObject", old)
		}
		_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(old),
		})
		if err != nil {
			return b.translateError(err, "DeleteObject", old)
		}
	}
	return nil
}

// FreeBytes reports a fixed large capacity; object stores expose no
// usable quota to the guest.
func (b *Backend) FreeBytes(ctx context.Context) (uint64, error) {
	return 1 << 40, nil
}

func (b *Backend) Close() error { return nil }

func (b *Backend) get(ctx context.Context, key string, offset, size int64) ([]byte, error) {
	var rangeHeader *string
	if offset > 0 || size > 0 {
		if size > 0 {
			rangeHeader = aws.String(fmt.Sprintf("bytes=%d-%d", offset, offset+size-1))
		} else {
			rangeHeader = aws.String(fmt.Sprintf("bytes=%d-", offset))
		}
	}
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Range:  rangeHeader,
	})
	if err != nil {
		return nil, b.translateError(err, "GetObject", key)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fserr.Wrap(err, fserr.CodeBackendFailure, "GetObject", key)
	}
	return data, nil
}

func (b *Backend) put(ctx context.Context, key string, data []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return b.translateError(err, "PutObject", key)
	}
	return nil
}

var (
	_ types.ArchiveFactory = (*Factory)(nil)
	_ types.ArchiveBackend = (*Backend)(nil)
)
