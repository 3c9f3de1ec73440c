package storage

import (
	"context"
	"errors"
	"io"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Config struct {
	Region     string
	Bucket     string
	AccessKey  string
	SecretKey  string
	Endpoint   string
	PublicBase string
}

// Client uploads attachment payloads; serving them back is the CDN's job.
type Client struct {
	cfg S3Config
	s3  *s3.Client
}

func NewClient(ctx context.Context, cfg S3Config) (*Client, error) {
	if cfg.Region == "" || cfg.Bucket == "" {
		return nil, errors.New("s3 region and bucket are required")
	}

	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		if parsed, err := url.Parse(endpoint); err == nil {
			endpoint = parsed.String()
		}
		opts = append(opts, config.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				if service == s3.ServiceID {
					return aws.Endpoint{URL: endpoint, SigningRegion: cfg.Region}, nil
				}
				return aws.Endpoint{}, &aws.EndpointNotFoundError{}
			}),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	return &Client{cfg: cfg, s3: s3Client}, nil
}

// Upload writes one object and returns its public URL.
func (c *Client) Upload(ctx context.Context, key, contentType string, body io.Reader, sizeBytes int64) (string, error) {
	if c == nil {
		return "", errors.New("s3 client not initialized")
	}
	if key == "" {
		return "", errors.New("object key is required")
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if sizeBytes > 0 {
		input.ContentLength = aws.Int64(sizeBytes)
	}

	if _, err := c.s3.PutObject(ctx, input); err != nil {
		return "", err
	}
	return c.FileURL(key), nil
}

func (c *Client) FileURL(key string) string {
	if c == nil || key == "" {
		return ""
	}
	if c.cfg.PublicBase != "" {
		return c.cfg.PublicBase + "/" + key
	}
	return "https://" + c.cfg.Bucket + ".s3." + c.cfg.Region + ".amazonaws.com/" + key
}
