package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"recording-ingest/config"
	"recording-ingest/constant"
)

// ErrPublicACLUnsupported is returned by MakePublic when the backend has
// no per-object ACL call. Callers treat it as best-effort and move on.
var ErrPublicACLUnsupported = errors.New("per-object ACLs are not supported by this backend")

// ObjectStore is the durable write boundary. Put is a single,
// non-resumable object write; a failed write is retried whole by the
// caller, never resumed from an offset.
type ObjectStore interface {
	Put(ctx context.Context, key string, payload []byte, contentType string, cacheControl string) (string, error)
	MakePublic(ctx context.Context, key string) error
	Bucket() string
}

// Factory builds an ObjectStore with freshly resolved credentials.
// Resolution happens on every New call, nothing is cached across calls.
type Factory interface {
	New(ctx context.Context) (ObjectStore, error)
}

func NewFactory(cfg *config.Storage) (Factory, error) {
	switch constant.StorageBackend(cfg.Backend) {
	case constant.StorageBackendMinIO:
		return &minioFactory{cfg: cfg}, nil
	case constant.StorageBackendS3:
		return &s3Factory{cfg: cfg}, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// objectURL resolves the publicly addressable URL of a written object.
func objectURL(cfg *config.Storage, key string) string {
	if cfg.PublicBaseURL != "" {
		return strings.TrimRight(cfg.PublicBaseURL, "/") + "/" + cfg.Bucket + "/" + key
	}
	scheme := "http"
	if cfg.Secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, cfg.Endpoint, cfg.Bucket, key)
}
