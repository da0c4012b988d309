package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Options configures the AWS S3 backend. Without static keys the default
// AWS credential chain is used. A custom Endpoint without Region assumes
// us-east-1, which S3-compatible servers accept.
type S3Options struct {
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	SessionToken string
	UsePathStyle bool
}

type S3Adapter struct {
	client *s3.Client
}

func NewS3(ctx context.Context, opts S3Options) (*S3Adapter, error) {
	region := opts.Region
	if region == "" && opts.Endpoint != "" {
		region = "us-east-1"
	}

	var load []func(*config.LoadOptions) error
	if region != "" {
		load = append(load, config.WithRegion(region))
	}
	if opts.AccessKey != "" || opts.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, opts.SessionToken)
		load = append(load, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, load...)
	if err != nil {
		return nil, fmt.Errorf("storage: s3 config: %w", err)
	}

	return NewS3WithClient(s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = opts.UsePathStyle
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})), nil
}

func NewS3WithClient(client *s3.Client) *S3Adapter {
	return &S3Adapter{client: client}
}

// PutObject uploads body with a SHA-256 checksum so S3 rejects a corrupted
// transfer.
func (s *S3Adapter) PutObject(ctx context.Context, bucket, key string, body []byte, opts PutOptions) (ObjectInfo, error) {
	loc := location{backend: "s3", bucket: bucket, key: key}
	if err := loc.check(); err != nil {
		return ObjectInfo{}, err
	}

	in := &s3.PutObjectInput{
		Bucket:            aws.String(bucket),
		Key:               aws.String(key),
		Body:              bytes.NewReader(body),
		ContentLength:     aws.Int64(int64(len(body))),
		ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
		Metadata:          opts.Metadata,
	}
	if opts.ContentType != "" {
		in.ContentType = aws.String(opts.ContentType)
	}

	out, err := s.client.PutObject(ctx, in)
	if err != nil {
		return ObjectInfo{}, loc.wrap("put", err)
	}

	info := loc.info(body, opts)
	info.ETag = aws.ToString(out.ETag)
	return info, nil
}

func (s *S3Adapter) GetObject(ctx context.Context, bucket, key string) ([]byte, ObjectInfo, error) {
	loc := location{backend: "s3", bucket: bucket, key: key}
	if err := loc.check(); err != nil {
		return nil, ObjectInfo{}, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, ObjectInfo{}, ErrObjectNotFound
		}
		return nil, ObjectInfo{}, loc.wrap("get", err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, ObjectInfo{}, loc.wrap("read", err)
	}

	info := loc.info(body, PutOptions{ContentType: aws.ToString(out.ContentType), Metadata: out.Metadata})
	info.ETag = aws.ToString(out.ETag)
	info.UpdatedAt = aws.ToTime(out.LastModified)
	return body, info, nil
}

func (s *S3Adapter) DeleteObject(ctx context.Context, bucket, key string) error {
	loc := location{backend: "s3", bucket: bucket, key: key}
	if err := loc.check(); err != nil {
		return err
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}); err != nil {
		return loc.wrap("delete", err)
	}
	return nil
}

func (*S3Adapter) Close() error { return nil }
