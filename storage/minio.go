package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"recording-ingest/config"
)

type minioFactory struct {
	cfg *config.Storage
}

func (f *minioFactory) New(ctx context.Context) (ObjectStore, error) {
	resolved, err := ResolveCredentials(f.cfg)
	if err != nil {
		return nil, err
	}

	var creds *credentials.Credentials
	if resolved.Ambient {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvMinio{},
			&credentials.EnvAWS{},
			&credentials.IAM{},
		})
		if err := verifyAmbient(creds); err != nil {
			return nil, err
		}
	} else {
		creds = credentials.NewStaticV4(resolved.AccessKeyID, resolved.SecretAccessKey, resolved.SessionToken)
	}

	client, err := minio.New(f.cfg.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: f.cfg.Secure,
	})
	if err != nil {
		return nil, err
	}

	return &minioStore{client: client, cfg: f.cfg}, nil
}

// verifyAmbient forces one resolution of the platform chain. An empty
// chain is a credential problem and should surface as one here, not as
// a write failure on the first Put. The chain falls back to anonymous
// rather than erroring, so both outcomes are checked.
func verifyAmbient(creds *credentials.Credentials) error {
	v, err := creds.Get()
	if err != nil {
		return errors.Join(ErrCredentialResolution, fmt.Errorf("ambient credential chain: %w", err))
	}
	if v.SignerType.IsAnonymous() {
		return errors.Join(ErrCredentialResolution, errors.New("ambient credential chain resolved to anonymous"))
	}
	return nil
}

type minioStore struct {
	client *minio.Client
	cfg    *config.Storage
}

func (s *minioStore) Put(ctx context.Context, key string, payload []byte, contentType string, cacheControl string) (string, error) {
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: cacheControl,
	})
	if err != nil {
		return "", err
	}
	return objectURL(s.cfg, key), nil
}

// MakePublic is unsupported here; MinIO exposes object visibility through
// bucket policy only. Callers log the sentinel and carry on.
func (s *minioStore) MakePublic(ctx context.Context, key string) error {
	return ErrPublicACLUnsupported
}

func (s *minioStore) Bucket() string {
	return s.cfg.Bucket
}
