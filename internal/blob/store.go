// Package blob keeps the record encoding of a snapshot in one S3 object.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/Joseda-hg/lazyplan/internal/record"
	"github.com/Joseda-hg/lazyplan/internal/store"
)

const (
	defaultRegion = "us-east-1"
	defaultKey    = "lazyplan.csv"
	contentType   = "text/csv"
)

type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Config selects the bucket and object. Endpoint and PathStyle target
// S3-compatible servers such as MinIO; empty keys use the default
// credentials chain.
type Config struct {
	Bucket          string
	Key             string
	Region          string
	Endpoint        string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

type Store struct {
	client objectAPI
	bucket string
	key    string
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newStore(client, cfg.Bucket, cfg.Key), nil
}

func newStore(client objectAPI, bucket, key string) *Store {
	if key == "" {
		key = defaultKey
	}
	return &Store{client: client, bucket: bucket, key: key}
}

// Load reads the object; a missing object is an empty snapshot.
func (s *Store) Load(ctx context.Context) (store.Snapshot, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(s.key)})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return store.Snapshot{}, nil
		}
		return store.Snapshot{}, fmt.Errorf("get s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()

	snap, err := record.Decode(out.Body)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("read s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return snap, nil
}

func (s *Store) Save(ctx context.Context, snap store.Snapshot) error {
	var buf bytes.Buffer
	if err := record.Encode(&buf, snap); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(int64(buf.Len())),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return nil
}
