// Package objstore provides read access to the S3-compatible object store the
// pipeline loads from.
//
// The relational path only needs the bucket/key pair (the engine reads the
// object itself during LOAD DATA FROM S3); the embedded-store path downloads
// the object bytes through this package.
package objstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/zeebo/xxh3"
)

// Config holds object-store connection settings. Endpoint may be a bare host
// ("s3.us-east-2.amazonaws.com") or a URL; an https scheme forces TLS.
type Config struct {
	Endpoint        string `json:"endpoint"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	Region          string `json:"region"`
	UseSSL          bool   `json:"use_ssl"`
}

// Store wraps a minio client for object reads.
type Store struct {
	client *minio.Client
}

// Downloader is the subset of Store the embedded-store ingestor needs.
type Downloader interface {
	DownloadTemp(ctx context.Context, bucket, key string) (path string, size int64, sum uint64, err error)
}

// New builds a Store from the given configuration.
func New(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("objstore: endpoint is required")
	}

	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}

	var creds *credentials.Credentials
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		creds = credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	} else {
		// Fall back to the environment/IAM chain so in-cluster roles work
		// without explicit keys.
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.IAM{},
		})
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("objstore: create client: %w", err)
	}
	return &Store{client: client}, nil
}

// Open returns a streaming reader for the object. The caller must Close it.
// A missing bucket or key surfaces as an error on the first Read.
func (s *Store) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("objstore: bucket and key are required")
	}
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("objstore: get s3://%s/%s: %w", bucket, key, err)
	}
	return obj, nil
}

// DownloadTemp copies the object into a scratch file and returns its path,
// the byte count, and an xxh3 content checksum. The caller owns removal of
// the returned path; on error no file is left behind.
func (s *Store) DownloadTemp(ctx context.Context, bucket, key string) (string, int64, uint64, error) {
	rc, err := s.Open(ctx, bucket, key)
	if err != nil {
		return "", 0, 0, err
	}
	defer rc.Close()

	f, err := os.CreateTemp("", "bulkload_csv_*.csv")
	if err != nil {
		return "", 0, 0, fmt.Errorf("objstore: create scratch file: %w", err)
	}

	h := xxh3.New()
	n, err := io.Copy(io.MultiWriter(f, h), rc)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return "", 0, 0, fmt.Errorf("objstore: download s3://%s/%s: %w", bucket, key, err)
	}
	return f.Name(), n, h.Sum64(), nil
}
