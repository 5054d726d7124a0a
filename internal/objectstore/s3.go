package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"podstudio/internal/services"
)

// S3Config contains the bucket settings. Credentials come from the standard
// AWS chain.
type S3Config struct {
	Bucket        string
	Prefix        string
	Region        string
	Profile       string
	Endpoint      string
	UsePathStyle  bool
	PublicBaseURL string
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 uploads objects to an S3 or S3-compatible bucket.
type S3 struct {
	client objectPutter
	cfg    S3Config
}

// NewS3 loads the default AWS configuration with the optional overrides in cfg.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "objectstore", "init", "s3 bucket required", nil)
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "objectstore", "init", "load aws config", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newS3(client, cfg), nil
}

func newS3(client objectPutter, cfg S3Config) *S3 {
	cfg.Prefix = strings.Trim(strings.TrimSpace(cfg.Prefix), "/")
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	return &S3{client: client, cfg: cfg}
}

// Put uploads data and returns its public URL.
func (s *S3) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	objectKey := key
	if s.cfg.Prefix != "" {
		objectKey = s.cfg.Prefix + "/" + key
	}
	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", services.Wrap(services.ErrStorage, "objectstore", "put", fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, objectKey), err)
	}
	return s.objectURL(objectKey), nil
}

func (s *S3) objectURL(objectKey string) string {
	switch {
	case s.cfg.PublicBaseURL != "":
		return joinURL(s.cfg.PublicBaseURL, objectKey)
	case s.cfg.Endpoint != "" && s.cfg.UsePathStyle:
		return joinURL(strings.TrimRight(s.cfg.Endpoint, "/")+"/"+s.cfg.Bucket, objectKey)
	case s.cfg.Region != "":
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, objectKey)
	default:
		return fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, objectKey)
	}
}
