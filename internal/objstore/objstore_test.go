package objstore

import (
	"context"
	"testing"
)

func TestNewRequiresEndpoint(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); err == nil {
		t.Fatal("New accepted an empty endpoint")
	}
}

func TestNewParsesEndpointForms(t *testing.T) {
	t.Parallel()

	// Construction is offline; only the endpoint form is under test.
	tests := []struct {
		name string
		cfg  Config
	}{
		{"bare host", Config{Endpoint: "s3.us-east-2.amazonaws.com"}},
		{"https url forces tls", Config{Endpoint: "https://minio.internal:9000"}},
		{"static credentials", Config{
			Endpoint:        "minio.internal:9000",
			AccessKeyID:     "AKIA",
			SecretAccessKey: "secret",
			Region:          "us-east-2",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := New(tt.cfg)
			if err != nil {
				t.Fatalf("New(%+v): %v", tt.cfg, err)
			}
			if s == nil || s.client == nil {
				t.Fatal("New returned a store without a client")
			}
		})
	}
}

func TestOpenRequiresBucketAndKey(t *testing.T) {
	t.Parallel()

	s, err := New(Config{Endpoint: "minio.internal:9000"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Open(context.Background(), "", "k"); err == nil {
		t.Error("Open accepted an empty bucket")
	}
	if _, err := s.Open(context.Background(), "b", ""); err == nil {
		t.Error("Open accepted an empty key")
	}
}
