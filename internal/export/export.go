// Package export writes an owner's rosters to an S3-compatible bucket: one
// JSON object per roster plus an index of summaries.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/albapepper/rosterdex/internal/config"
	"github.com/albapepper/rosterdex/internal/roster"
)

// Putter is the part of the S3 client the exporter uses.
type Putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Lister reads an owner's rosters. roster.Store satisfies it.
type Lister interface {
	List(ctx context.Context, owner string) ([]*roster.Roster, error)
}

// Config holds the bucket settings.
type Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string // optional; set for MinIO and other S3-compatible stores
	PathStyle bool
	AccessKey string // optional; falls back to the default credentials chain
	SecretKey string
}

// ConfigFrom extracts the export settings from the service config.
func ConfigFrom(c *config.Config) Config {
	return Config{
		Bucket:    c.ExportBucket,
		Prefix:    c.ExportPrefix,
		Region:    c.ExportRegion,
		Endpoint:  c.ExportEndpoint,
		PathStyle: c.ExportPathStyle,
		AccessKey: c.ExportAccessKey,
		SecretKey: c.ExportSecretKey,
	}
}

// NewS3Client builds an S3 client for cfg.
func NewS3Client(ctx context.Context, cfg Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	}), nil
}

// Result tracks counts and errors from one export run.
type Result struct {
	Owner    string
	Exported int
	Bytes    int64
	Keys     []string
	Errors   []string
}

// AddErrorf records a formatted error message.
func (r *Result) AddErrorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Summary returns a human-readable summary of the export.
func (r *Result) Summary() string {
	return fmt.Sprintf("owner=%s rosters=%d bytes=%d errors=%d", r.Owner, r.Exported, r.Bytes, len(r.Errors))
}

// index is the object listing every exported roster.
type index struct {
	Owner      string           `json:"owner_id"`
	ExportedAt time.Time        `json:"exported_at"`
	Rosters    []roster.Summary `json:"rosters"`
}

// Exporter copies rosters from a store into a bucket.
type Exporter struct {
	store  Lister
	client Putter
	bucket string
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

// New creates an Exporter.
func New(store Lister, client Putter, cfg Config, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		store:  store,
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		logger: logger,
		now:    time.Now,
	}
}

// Export writes every roster of owner. A failed roster object is recorded in
// the result and the run continues; the index lists only rosters that were
// written. Listing failures and a failed index write abort the run.
func (e *Exporter) Export(ctx context.Context, owner string) (*Result, error) {
	if e.bucket == "" {
		return nil, fmt.Errorf("export bucket not configured")
	}
	list, err := e.store.List(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list rosters of %s: %w", owner, err)
	}

	res := &Result{Owner: owner}
	idx := index{Owner: owner, ExportedAt: e.now().UTC(), Rosters: []roster.Summary{}}

	for _, r := range list {
		if !r.IsPersisted() {
			continue
		}
		key := e.key(owner, fmt.Sprintf("%d.json", *r.ID))
		n, err := e.put(ctx, key, r)
		if err != nil {
			res.AddErrorf("roster %d: %v", *r.ID, err)
			e.logger.Warn("Roster export failed", "owner", owner, "roster", *r.ID, "error", err)
			continue
		}
		res.Exported++
		res.Bytes += n
		res.Keys = append(res.Keys, key)
		idx.Rosters = append(idx.Rosters, r.Summary())
	}

	key := e.key(owner, "index.json")
	n, err := e.put(ctx, key, idx)
	if err != nil {
		return res, fmt.Errorf("write index: %w", err)
	}
	res.Bytes += n
	res.Keys = append(res.Keys, key)

	e.logger.Info("Rosters exported", "bucket", e.bucket, "summary", res.Summary())
	return res, nil
}

func (e *Exporter) key(owner, name string) string {
	return path.Join(e.prefix, url.PathEscape(owner), name)
}

func (e *Exporter) put(ctx context.Context, key string, v any) (int64, error) {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(e.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return 0, fmt.Errorf("put %s: %w", key, err)
	}
	return int64(len(body)), nil
}
