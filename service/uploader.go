package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"recording-ingest/config"
	"recording-ingest/constant"
	"recording-ingest/dto"
	"recording-ingest/entities"
	"recording-ingest/pkg/rabbitmq"
	"recording-ingest/repository"
	"recording-ingest/storage"
)

type UploadResult struct {
	Key string
	URL string
}

type ManifestInput struct {
	SessionID   string
	TotalChunks int
	MimeType    string
	StartedAt   time.Time
	EndedAt     time.Time
}

// Uploader persists chunks and the terminal manifest under a
// deterministic per-session key scheme. Every call is stateless and
// independent; credentials are resolved fresh by the store factory.
type Uploader interface {
	PutSegment(ctx context.Context, sessionID string, index int, payload []byte, mimeType string) (*UploadResult, error)
	PutManifest(ctx context.Context, in ManifestInput) (*UploadResult, error)
}

type uploader struct {
	stores storage.Factory
	cfg    *config.Config
	repo   repository.RecordingRepository
	queue  rabbitmq.Publisher
	clock  func() time.Time
}

func NewUploader(stores storage.Factory, cfg *config.Config, repo repository.RecordingRepository, queue rabbitmq.Publisher) Uploader {
	return &uploader{
		stores: stores,
		cfg:    cfg,
		repo:   repo,
		queue:  queue,
		clock:  time.Now,
	}
}

func (u *uploader) PutSegment(ctx context.Context, sessionID string, index int, payload []byte, mimeType string) (*UploadResult, error) {
	if !ValidSessionID(sessionID) {
		return nil, ErrInvalidSession
	}
	if index < 0 {
		return nil, ErrInvalidIndex
	}

	store, err := u.stores.New(ctx)
	if err != nil {
		return nil, err
	}

	key := ChunkObjectName(sessionID, index, mimeType)
	url, err := store.Put(ctx, key, payload, mimeType, "")
	if err != nil {
		return nil, &StorageWriteError{Op: "put chunk", Key: key, Err: err}
	}

	u.makePublic(ctx, store, key)

	if u.repo != nil {
		if err := u.repo.SaveChunk(ctx, sessionID, index, key, int64(len(payload)), mimeType); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("session_id", sessionID).Int("chunk_index", index).Msg("failed to record chunk metadata")
		}
	}

	return &UploadResult{Key: key, URL: url}, nil
}

func (u *uploader) PutManifest(ctx context.Context, in ManifestInput) (*UploadResult, error) {
	if !ValidSessionID(in.SessionID) {
		return nil, ErrInvalidSession
	}
	if in.TotalChunks < 0 {
		return nil, ErrInvalidIndex
	}

	store, err := u.stores.New(ctx)
	if err != nil {
		return nil, err
	}

	manifest := dto.Manifest{
		SessionID:   in.SessionID,
		TotalChunks: in.TotalChunks,
		MimeType:    in.MimeType,
		StartedAt:   in.StartedAt.UnixMilli(),
		EndedAt:     in.EndedAt.UnixMilli(),
		UploadedAt:  u.clock().UnixMilli(),
		Bucket:      store.Bucket(),
		Version:     dto.ManifestVersion,
	}
	body, err := json.Marshal(manifest)
	if err != nil {
		return nil, err
	}

	key := ManifestObjectName(in.SessionID)
	url, err := store.Put(ctx, key, body, "application/json", "no-cache")
	if err != nil {
		return nil, &StorageWriteError{Op: "put manifest", Key: key, Err: err}
	}

	u.makePublic(ctx, store, key)
	u.handOff(ctx, in, key)

	return &UploadResult{Key: key, URL: url}, nil
}

// makePublic is a convenience, not a correctness requirement. Its
// outcome is logged and never propagated.
func (u *uploader) makePublic(ctx context.Context, store storage.ObjectStore, key string) {
	if !u.cfg.Storage.PublicRead {
		return
	}
	if err := store.MakePublic(ctx, key); err != nil {
		if errors.Is(err, storage.ErrPublicACLUnsupported) {
			zerolog.Ctx(ctx).Debug().Str("key", key).Msg("per-object ACLs unsupported, relying on bucket policy")
			return
		}
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("failed to mark object public")
	}
}

// handOff records session metadata and notifies the merge pipeline. The
// manifest is already durable at this point, so every failure here is a
// warning, not an upload failure.
func (u *uploader) handOff(ctx context.Context, in ManifestInput, manifestKey string) {
	if u.repo == nil {
		return
	}

	session, err := u.repo.FinalizeSession(ctx, in.SessionID, in.MimeType, in.TotalChunks, manifestKey, in.StartedAt, in.EndedAt)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("session_id", in.SessionID).Msg("failed to finalize session metadata")
		return
	}

	if u.queue == nil {
		return
	}

	now := u.clock()
	job := &entities.Job{
		ID:         uuid.New(),
		EntityId:   session.ID,
		EntityType: "recording_session",
		Status:     constant.JobStatusPending,
		JobType:    constant.JobTypeRecordingMerge,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := u.repo.CreateJob(ctx, job); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("session_id", in.SessionID).Msg("failed to create merge job")
		return
	}

	msg := dto.MergeRequestMessage{
		JobId:       job.ID,
		SessionId:   in.SessionID,
		TotalChunks: in.TotalChunks,
		ManifestKey: manifestKey,
	}
	if err := u.queue.PublishMergeRequest(ctx, msg); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("session_id", in.SessionID).Msg("failed to publish merge request")
	}
}
