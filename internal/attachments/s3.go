package attachments

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"
)

// S3Options configures an S3-compatible disk (AWS S3, MinIO, R2).
type S3Options struct {
	Bucket   string
	Region   string
	Key      string
	Secret   string
	Endpoint string // empty for AWS
	Prefix   string // key prefix standing in for the local root directory
}

// S3Disk stores attachments as objects under Prefix. Directories are
// implied by keys: a product directory exists once it holds an object.
type S3Disk struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Disk(ctx context.Context, opts S3Options) (*S3Disk, error) {
	if opts.Bucket == "" {
		return nil, errors.New("attachments/s3: bucket is not configured")
	}
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(region)}
	if opts.Key != "" && opts.Secret != "" {
		loadOpts = append(loadOpts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.Key, opts.Secret, ""),
		))
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("attachments/s3: load config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Disk{
		client: s3.NewFromConfig(cfg, clientOpts...),
		bucket: opts.Bucket,
		prefix: strings.Trim(opts.Prefix, "/"),
	}, nil
}

func (d *S3Disk) key(p string) string {
	return path.Join(d.prefix, strings.TrimLeft(p, "/"))
}

func (d *S3Disk) dirPrefix(dir string) string {
	return d.key(dir) + "/"
}

func (d *S3Disk) Put(ctx context.Context, p string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("attachments/s3: read %s: %w", p, err)
	}
	_, err = d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(d.key(p)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimetype.Detect(data).String()),
	})
	if err != nil {
		return fmt.Errorf("attachments/s3: put %s: %w", p, err)
	}
	return nil
}

func (d *S3Disk) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.key(p)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("attachments/s3: get %s: %w", p, err)
	}
	return out.Body, nil
}

func (d *S3Disk) List(ctx context.Context, dir string) ([]FileDescriptor, error) {
	prefix := d.dirPrefix(dir)
	paginator := s3.NewListObjectsV2Paginator(d.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(d.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	var out []FileDescriptor
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("attachments/s3: list %s: %w", dir, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" {
				continue
			}
			out = append(out, FileDescriptor{Name: name, Size: aws.ToInt64(obj.Size)})
		}
	}
	if len(out) == 0 {
		return nil, ErrNotExist
	}
	return out, nil
}

func (d *S3Disk) DirExists(ctx context.Context, dir string) (bool, error) {
	out, err := d.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(d.bucket),
		Prefix:  aws.String(d.dirPrefix(dir)),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("attachments/s3: exists %s: %w", dir, err)
	}
	return len(out.Contents) > 0, nil
}

// MakeDirectory is a no-op: S3 has no directories.
func (d *S3Disk) MakeDirectory(context.Context, string) error { return nil }
