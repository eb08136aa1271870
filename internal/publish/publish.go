// Package publish uploads generated registry artifacts to S3-compatible
// object storage.
//
// Items are uploaded in index order and the index is uploaded last, so a
// consumer reading the published index never sees an item that is missing.
package publish

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/attribute"

	"github.com/scenes-dev/scenes/internal/config"
	"github.com/scenes-dev/scenes/internal/errors"
	"github.com/scenes-dev/scenes/internal/registry"
	"github.com/scenes-dev/scenes/internal/scene"
	"github.com/scenes-dev/scenes/internal/telemetry"
)

// ContentType is set on every uploaded artifact.
const ContentType = "application/json"

// ChecksumKey is the object metadata key holding the artifact sha256.
const ChecksumKey = "sha256"

// ObjectPutter is the subset of the S3 client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options configures a publisher.
type Options struct {
	// Client uploads objects. Defaults to an S3 client built from the
	// project config and credentials.
	Client ObjectPutter

	// Metrics counts uploaded objects. Nil disables metrics.
	Metrics *telemetry.Metrics

	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// OnUpload is called after each object is uploaded.
	OnUpload func(obj Object)

	// DryRun lists the objects without uploading them.
	DryRun bool
}

// Object describes one uploaded artifact.
type Object struct {
	Name     string
	Key      string
	Checksum string
	Size     int64
}

// Result lists the uploaded objects in upload order.
type Result struct {
	Bucket   string
	Objects  []Object
	Duration time.Duration
}

// Publisher uploads the artifacts of one project.
type Publisher struct {
	config  *config.Config
	client  ObjectPutter
	metrics *telemetry.Metrics
	log     *slog.Logger
	options Options
}

// New creates a publisher. The bucket must be configured.
func New(cfg *config.Config, options Options) (*Publisher, error) {
	if cfg.Publish.Bucket == "" {
		return nil, errors.New("S040").
			WithDetail("publish.bucket is not set").
			WithSuggestion("Set publish.bucket in scenes.json or SCENES_PUBLISH_BUCKET")
	}

	log := options.Logger
	if log == nil {
		log = slog.Default()
	}

	client := options.Client
	if client == nil && !options.DryRun {
		c, err := NewClient(cfg)
		if err != nil {
			return nil, err
		}
		client = c
	}

	return &Publisher{
		config:  cfg,
		client:  client,
		metrics: options.Metrics,
		log:     log.With("component", "publish"),
		options: options,
	}, nil
}

// NewClient builds an S3 client for the configured region and endpoint.
// Credentials come from the environment, with the project .env file
// filling in unset variables.
func NewClient(cfg *config.Config) (*s3.Client, error) {
	env, err := loadEnv(cfg.Abs(".env"))
	if err != nil {
		return nil, errors.New("S040").WithFile(".env").Wrap(err)
	}

	creds, err := credentialsFrom(env)
	if err != nil {
		return nil, err
	}

	region := cfg.Publish.Region
	if r := env("AWS_REGION"); r != "" && region == "" {
		region = r
	}

	awsCfg := aws.Config{
		Region:      region,
		Credentials: aws.NewCredentialsCache(creds),
	}
	endpoint := cfg.Publish.Endpoint
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// loadEnv returns a lookup over the process environment backed by the
// variables in path. A missing file is not an error.
func loadEnv(path string) (func(string) string, error) {
	file, err := godotenv.Read(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return file[key]
	}, nil
}

func credentialsFrom(env func(string) string) (aws.CredentialsProviderFunc, error) {
	id := env("AWS_ACCESS_KEY_ID")
	secret := env("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return nil, errors.New("S040").
			WithDetail("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY are not set").
			WithSuggestion("Export them or add them to .env in the project root")
	}
	token := env("AWS_SESSION_TOKEN")
	return func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     id,
			SecretAccessKey: secret,
			SessionToken:    token,
			Source:          "scenes-env",
		}, nil
	}, nil
}

// Key returns the object key for an artifact file name.
func (p *Publisher) Key(file string) string {
	return p.config.Publish.Prefix + file
}

// Publish uploads every item listed in the generated index, then the index.
// On failure the objects uploaded so far are returned with the error.
func (p *Publisher) Publish(ctx context.Context) (result *Result, err error) {
	ctx, span := telemetry.StartSpan(ctx, "publish",
		attribute.String("scenes.bucket", p.config.Publish.Bucket))
	defer func() { telemetry.EndSpan(span, err) }()

	start := time.Now()
	defer func() { p.metrics.RecordRun("publish", time.Since(start), err) }()

	fsys := p.config.FS()
	out := p.config.OutputPath()
	indexPath := path.Join(out, registry.IndexName)

	idx, err := registry.ReadIndex(fsys, indexPath)
	if err != nil {
		return nil, errors.New("S040").
			WithFile(indexPath).
			WithSuggestion("Run `scenes generate` before publishing").
			Wrap(err)
	}

	files := make([]string, 0, len(idx.Items)+1)
	for _, name := range idx.Names() {
		files = append(files, scene.ArtifactName(name))
	}
	files = append(files, registry.IndexName)

	// Every artifact is read before the first upload.
	bodies := make([][]byte, len(files))
	for i, file := range files {
		data, err := fs.ReadFile(fsys, path.Join(out, file))
		if err != nil {
			return nil, errors.New("S040").
				WithFile(path.Join(out, file)).
				WithDetailf("index lists %s but it could not be read", file).
				WithSuggestion("Regenerate the registry").
				Wrap(err)
		}
		bodies[i] = data
	}

	result = &Result{Bucket: p.config.Publish.Bucket}
	for i, file := range files {
		obj := Object{
			Name:     file,
			Key:      p.Key(file),
			Checksum: registry.Checksum(bodies[i]),
			Size:     int64(len(bodies[i])),
		}
		if !p.options.DryRun {
			if err := p.put(ctx, obj, bodies[i]); err != nil {
				result.Duration = time.Since(start)
				return result, errors.New("S040").
					WithDetailf("uploading %s to s3://%s/%s after %d object(s) uploaded", file, result.Bucket, obj.Key, len(result.Objects)).
					Wrap(err)
			}
			p.metrics.RecordPublished()
		}
		p.log.Debug("uploaded", "key", obj.Key, "size", obj.Size, "dry_run", p.options.DryRun)
		result.Objects = append(result.Objects, obj)
		if p.options.OnUpload != nil {
			p.options.OnUpload(obj)
		}
	}

	result.Duration = time.Since(start)
	p.log.Info("published", "bucket", result.Bucket, "objects", len(result.Objects), "duration", result.Duration)
	return result, nil
}

func (p *Publisher) put(ctx context.Context, obj Object, body []byte) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(p.config.Publish.Bucket),
		Key:         aws.String(obj.Key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(ContentType),
		Metadata: map[string]string{
			ChecksumKey: obj.Checksum,
		},
	}
	if cc := p.config.Publish.CacheControl; cc != "" {
		input.CacheControl = aws.String(cc)
	}
	_, err := p.client.PutObject(ctx, input)
	return err
}
