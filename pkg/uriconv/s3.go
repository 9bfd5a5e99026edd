package uriconv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/jacoelho/ecore/pkg/uri"
)

// S3Scheme is the scheme served by S3: s3://bucket/key.
const S3Scheme = "s3"

const defaultS3Region = "us-east-1"

// S3Config holds explicit construction parameters. Empty credentials fall
// back to the default AWS credential chain.
type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	PathStyle       bool
}

// Environment variables read by S3ConfigFromEnv:
//
//	ECORE_S3_REGION=<region> (default us-east-1)
//	ECORE_S3_ENDPOINT=<url> (optional, for MinIO and other compatible stores)
//	ECORE_S3_PATH_STYLE=true|false (default false)
//	AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_SESSION_TOKEN (optional)

// S3ConfigFromEnv reads S3 settings from the process environment.
func S3ConfigFromEnv() S3Config {
	return S3Config{
		Region:    os.Getenv("ECORE_S3_REGION"),
		Endpoint:  os.Getenv("ECORE_S3_ENDPOINT"),
		PathStyle: strings.EqualFold(os.Getenv("ECORE_S3_PATH_STYLE"), "true"),
	}
}

// S3 stores documents as objects of S3 compatible buckets.
type S3 struct {
	client *s3.Client
}

// NewS3 builds an S3 client from cfg.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	region := cfg.Region
	if region == "" {
		region = defaultS3Region
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
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
	return NewS3FromClient(client), nil
}

// NewS3FromClient wraps an existing client.
func NewS3FromClient(client *s3.Client) *S3 {
	return &S3{client: client}
}

// CanHandle accepts s3: URIs.
func (h *S3) CanHandle(u uri.URI) bool { return u.Scheme() == S3Scheme }

func location(u uri.URI) (bucket, key string, err error) {
	bucket = u.Host()
	key = strings.TrimPrefix(u.Path(), "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%s: s3 uri needs a bucket and a key", u)
	}
	return bucket, key, nil
}

// Open downloads the object behind u.
func (h *S3) Open(ctx context.Context, u uri.URI) (io.ReadCloser, error) {
	bucket, key, err := location(u)
	if err != nil {
		return nil, err
	}
	out, err := h.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("open %s: %w", u, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", u, err)
	}
	return out.Body, nil
}

// Create returns a writer uploading the object on Close.
func (h *S3) Create(ctx context.Context, u uri.URI) (io.WriteCloser, error) {
	bucket, key, err := location(u)
	if err != nil {
		return nil, err
	}
	return &bufferWriter{commit: func(data []byte) error {
		_, err := h.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      &bucket,
			Key:         &key,
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/xml"),
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", u, err)
		}
		return nil
	}}, nil
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var resp *awshttp.ResponseError
	return errors.As(err, &resp) && resp.HTTPStatusCode() == http.StatusNotFound
}
