package photos

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/meimodev/activid-web-sub001/internal/invitation"
)

// DefaultPresignTTL is how long presigned photo URLs stay valid.
const DefaultPresignTTL = 15 * time.Minute

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true, ".avif": true,
}

// ListAPI is the subset of the S3 client used for listing.
type ListAPI interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// PresignAPI is the subset of the S3 presign client used for URLs.
type PresignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Config configures an S3-compatible photo bucket.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // MinIO or other S3-compatible endpoint
	AccessKey string
	SecretKey string
	TTL       time.Duration
	BaseURL   string // joined onto pool keys of invitations with no bucket
}

// S3 serves photos from a bucket with presigned GET URLs.
//
// An invitation's Photos.Bucket overrides the default bucket. When the
// invitation lists a pool its entries are keys under Photos.Prefix;
// otherwise every image object under the prefix is used. Invitations with
// no bucket at all fall back to Static.
type S3 struct {
	list    ListAPI
	presign PresignAPI
	bucket  string
	ttl     time.Duration
	static  Static
}

// S3Option configures an S3 library.
type S3Option func(*S3)

// WithFallback sets the library used for invitations with no bucket.
func WithFallback(st Static) S3Option {
	return func(s *S3) {
		s.static = st
	}
}

// NewS3 builds an S3 library from explicit clients. An empty bucket means
// only invitations that name their own bucket are served from S3.
func NewS3(list ListAPI, presign PresignAPI, bucket string, ttl time.Duration, opts ...S3Option) *S3 {
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}
	s := &S3{list: list, presign: presign, bucket: bucket, ttl: ttl}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewS3FromConfig loads AWS configuration and builds an S3 library. Static
// credentials are used when AccessKey is set.
func NewS3FromConfig(ctx context.Context, cfg S3Config) (*S3, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3(client, s3.NewPresignClient(client), cfg.Bucket, cfg.TTL,
		WithFallback(Static{BaseURL: cfg.BaseURL})), nil
}

func (s *S3) bucketFor(inv *invitation.Invitation) string {
	if inv.Photos.Bucket != "" {
		return inv.Photos.Bucket
	}
	return s.bucket
}

// Keys returns the configured pool under the invitation prefix, or lists
// the bucket when no pool is configured. Listed keys are sorted.
func (s *S3) Keys(ctx context.Context, inv *invitation.Invitation) ([]string, error) {
	bucket := s.bucketFor(inv)
	if bucket == "" {
		return s.static.Keys(ctx, inv)
	}

	if len(inv.Photos.Pool) > 0 {
		keys := make([]string, 0, len(inv.Photos.Pool))
		for _, k := range inv.Photos.Pool {
			if isAbsolute(k) || inv.Photos.Prefix == "" {
				keys = append(keys, k)
				continue
			}
			keys = append(keys, path.Join(inv.Photos.Prefix, k))
		}
		return keys, nil
	}

	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if inv.Photos.Prefix != "" {
		input.Prefix = aws.String(strings.TrimSuffix(inv.Photos.Prefix, "/") + "/")
	}

	var keys []string
	p := s3.NewListObjectsV2Paginator(s.list, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s: %w", bucket, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if imageExts[strings.ToLower(path.Ext(key))] {
				keys = append(keys, key)
			}
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// URL presigns a GET for key.
func (s *S3) URL(ctx context.Context, inv *invitation.Invitation, key string) (string, error) {
	bucket := s.bucketFor(inv)
	if bucket == "" || isAbsolute(key) {
		return s.static.URL(ctx, inv, key)
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("presign s3://%s/%s: %w", bucket, key, err)
	}
	return req.URL, nil
}
