// Package s3secrets provides a connection decorator that reads credentials
// from a JSON object stored in S3:
//
//	{"login": "loader", "password": "..."}
//
// Typical use keeps passwords out of the connection registry:
//
//	dec, err := s3secrets.New(ctx, "s3://secrets/indexima/prod.json", "eu-west-1")
//	if err != nil {
//	    return err
//	}
//	h := hook.New(cfg, registry, client, hook.WithDecorator(dec))
package s3secrets

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	gojson "github.com/goccy/go-json"

	"github.com/ajitpratap0/indexima/pkg/connection"
	"github.com/ajitpratap0/indexima/pkg/errors"
)

// ObjectGetter is the part of the S3 client the decorator needs
type ObjectGetter = manager.DownloadAPIClient

// Secret is the stored document
type Secret struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Decorator overrides login and password with the stored secret. The object
// is read once and cached for the lifetime of the decorator.
type Decorator struct {
	downloader *manager.Downloader
	bucket     string
	key        string

	mu     sync.Mutex
	secret *Secret
}

var _ connection.Decorator = (*Decorator)(nil)

// New creates a decorator for location (s3://bucket/key) using the default
// AWS credential chain
func New(ctx context.Context, location, region string) (*Decorator, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load AWS configuration")
	}
	return NewWithClient(s3.NewFromConfig(cfg), location)
}

// NewWithClient creates a decorator reading location with client
func NewWithClient(client ObjectGetter, location string) (*Decorator, error) {
	bucket, key, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}
	downloader := manager.NewDownloader(client, func(d *manager.Downloader) {
		d.Concurrency = 1
	})
	return &Decorator{downloader: downloader, bucket: bucket, key: key}, nil
}

// ParseLocation splits s3://bucket/key
func ParseLocation(location string) (bucket, key string, err error) {
	u, err := url.Parse(location)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return "", "", errors.New(errors.ErrorTypeConfig, "secret location must look like s3://bucket/key").
			WithDetail("location", location)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", errors.New(errors.ErrorTypeConfig, "secret location has no key").
			WithDetail("location", location)
	}
	return u.Host, key, nil
}

// Decorate implements connection.Decorator
func (d *Decorator) Decorate(ctx context.Context, conn *connection.Connection) (*connection.Connection, error) {
	secret, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	return connection.Credentials{Login: secret.Login, Password: secret.Password}.Decorate(ctx, conn)
}

func (d *Decorator) load(ctx context.Context) (*Secret, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.secret != nil {
		return d.secret, nil
	}

	buf := manager.NewWriteAtBuffer(nil)
	_, err := d.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.key),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeAuthentication, "failed to read credentials").
			WithDetail("bucket", d.bucket).
			WithDetail("key", d.key)
	}

	var secret Secret
	if err := gojson.Unmarshal(buf.Bytes(), &secret); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeAuthentication, "credentials object is not valid JSON").
			WithDetail("key", d.key)
	}
	d.secret = &secret
	return d.secret, nil
}
