package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"recording-ingest/config"
)

type s3Factory struct {
	cfg *config.Storage
}

func (f *s3Factory) New(ctx context.Context) (ObjectStore, error) {
	resolved, err := ResolveCredentials(f.cfg)
	if err != nil {
		return nil, err
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(f.cfg.Region),
	}
	if !resolved.Ambient {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(resolved.AccessKeyID, resolved.SecretAccessKey, resolved.SessionToken),
		))
	}
	if f.cfg.Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:           f.cfg.Endpoint,
				PartitionID:   "aws",
				SigningRegion: f.cfg.Region,
			}, nil
		})
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	if resolved.Ambient {
		if err := verifyAWSAmbient(ctx, awsCfg.Credentials); err != nil {
			return nil, err
		}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = f.cfg.UsePathStyle
	})

	return &s3Store{client: client, cfg: f.cfg}, nil
}

// verifyAWSAmbient forces one resolution of the SDK's default chain so
// a missing ambient identity surfaces as a credential problem here, not
// as a write failure on the first Put.
func verifyAWSAmbient(ctx context.Context, provider aws.CredentialsProvider) error {
	if _, err := provider.Retrieve(ctx); err != nil {
		return errors.Join(ErrCredentialResolution, fmt.Errorf("ambient credential chain: %w", err))
	}
	return nil
}

type s3Store struct {
	client *s3.Client
	cfg    *config.Storage
}

func (s *s3Store) Put(ctx context.Context, key string, payload []byte, contentType string, cacheControl string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String(contentType),
	}
	if cacheControl != "" {
		input.CacheControl = aws.String(cacheControl)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", err
	}
	if s.cfg.PublicBaseURL != "" || s.cfg.Endpoint != "" {
		return objectURL(s.cfg, key), nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key), nil
}

func (s *s3Store) MakePublic(ctx context.Context, key string) error {
	_, err := s.client.PutObjectAcl(ctx, &s3.PutObjectAclInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		ACL:    types.ObjectCannedACLPublicRead,
	})
	return err
}

func (s *s3Store) Bucket() string {
	return s.cfg.Bucket
}
