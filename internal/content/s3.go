/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package content

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// S3Config configures the object-storage loader. Endpoint and path-style
// addressing support S3-compatible services (MinIO, Spaces, etc).
type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	Endpoint        string
	UsePathStyle    bool
}

// S3Loader fetches encoded audio from S3-compatible object storage.
// Identifiers look like "s3://bucket/key"; a bare key uses the configured
// default bucket.
type S3Loader struct {
	client *s3.Client
	cfg    S3Config
	logger zerolog.Logger
}

// NewS3Loader builds an S3 client from the given configuration.
func NewS3Loader(ctx context.Context, cfg S3Config, logger zerolog.Logger) (*S3Loader, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Loader{
		client: client,
		cfg:    cfg,
		logger: logger.With().Str("component", "s3-loader").Logger(),
	}, nil
}

// Load downloads the object into a seekable buffer. The download goes
// through the halt reader so network stalls surface to the listener.
func (l *S3Loader) Load(id ID, _ Quality, preload bool, halt HaltListener) (*LoadedStream, error) {
	bucket, key := l.split(id)
	if bucket == "" || key == "" {
		return nil, &TransportError{ID: id, Err: fmt.Errorf("no bucket for identifier")}
	}

	encoding := EncodingForName(key)
	if encoding == EncodingUnknown {
		return nil, &FormatError{ID: id, Encoding: key}
	}

	start := time.Now()
	out, err := l.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if strings.Contains(err.Error(), "AccessDenied") {
			return nil, &RestrictedError{ID: id, Reason: "access denied"}
		}
		return nil, &TransportError{ID: id, Err: err}
	}
	defer out.Body.Close()

	data, err := io.ReadAll(newHaltReader(out.Body, halt, 0))
	if err != nil {
		return nil, &TransportError{ID: id, Err: fmt.Errorf("download %s/%s: %w", bucket, key, err)}
	}

	l.logger.Debug().
		Str("bucket", bucket).Str("key", key).
		Int("bytes", len(data)).
		Dur("took", time.Since(start)).
		Msg("object downloaded")

	return &LoadedStream{
		Stream: &memStream{Reader: bytes.NewReader(data), encoding: encoding, size: int64(len(data))},
		Track:  &TrackMeta{Name: key},
		Metrics: Metrics{
			Source:    "s3",
			SizeBytes: int64(len(data)),
			FetchMs:   time.Since(start).Milliseconds(),
			Preloaded: preload,
		},
	}, nil
}

func (l *S3Loader) split(id ID) (bucket, key string) {
	s := string(id)
	if rest, ok := strings.CutPrefix(s, "s3://"); ok {
		bucket, key, _ = strings.Cut(rest, "/")
		return bucket, key
	}
	return l.cfg.Bucket, s
}
