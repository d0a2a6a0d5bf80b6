package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"recording-ingest/constant"
	"recording-ingest/entities"
)

type RecordingRepository interface {
	Transaction(ctx context.Context, callback func(ctx context.Context) error, opts ...*sql.TxOptions) error
	GetDB() *gorm.DB
	SaveChunk(ctx context.Context, sessionID string, chunkIndex int, objectName string, fileSize int64, mimeType string) error
	FinalizeSession(ctx context.Context, sessionID string, mimeType string, totalChunks int, manifestObjectName string, startedAt, endedAt time.Time) (*entities.RecordingSession, error)
	CreateJob(ctx context.Context, job *entities.Job) error
	GetChunksBySessionId(ctx context.Context, sessionID string) ([]*entities.RecordingChunk, error)
}

type repo struct {
	db *gorm.DB
}

func NewRepo(db *sql.DB) RecordingRepository {
	gormDB, _ := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		},
	)
	return &repo{
		db: gormDB,
	}
}

func (r *repo) GetDB() *gorm.DB {
	return r.db
}

func (r *repo) Transaction(ctx context.Context, callback func(ctx context.Context) error, opts ...*sql.TxOptions) error {
	return r.GetDB().Transaction(func(tx *gorm.DB) error {
		err := callback(ctx)
		if err != nil {
			return err
		}
		return nil
	}, opts...)
}

// SaveChunk records one uploaded chunk. Re-delivery of the same
// (session, index) updates the existing row, matching the overwrite
// semantics of the object store.
func (r *repo) SaveChunk(ctx context.Context, sessionID string, chunkIndex int, objectName string, fileSize int64, mimeType string) error {
	chunk := &entities.RecordingChunk{}
	err := r.GetDB().Where("session_id = ? AND chunk_index = ?", sessionID, chunkIndex).First(chunk).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		chunk = &entities.RecordingChunk{
			SessionID:  sessionID,
			ChunkIndex: chunkIndex,
			ObjectName: objectName,
			FileSize:   &fileSize,
			MimeType:   mimeType,
			Status:     constant.ChunkStatusUploaded,
		}
		return r.GetDB().Create(chunk).Error
	}

	chunk.ObjectName = objectName
	chunk.FileSize = &fileSize
	chunk.MimeType = mimeType
	chunk.Status = constant.ChunkStatusUploaded
	return r.GetDB().Save(chunk).Error
}

func (r *repo) FinalizeSession(ctx context.Context, sessionID string, mimeType string, totalChunks int, manifestObjectName string, startedAt, endedAt time.Time) (*entities.RecordingSession, error) {
	session := &entities.RecordingSession{}
	err := r.GetDB().Where("session_id = ?", sessionID).First(session).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		session = &entities.RecordingSession{SessionID: sessionID}
		if err := r.GetDB().Create(session).Error; err != nil {
			return nil, err
		}
	}

	updates := map[string]interface{}{
		"mime_type":            mimeType,
		"status":               "FINALIZED",
		"started_at":           startedAt,
		"ended_at":             endedAt,
		"total_chunks":         totalChunks,
		"manifest_object_name": manifestObjectName,
	}
	if err := r.GetDB().Model(session).Where("session_id = ?", sessionID).Updates(updates).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (r *repo) CreateJob(ctx context.Context, job *entities.Job) error {
	return r.GetDB().Create(job).Error
}

func (r *repo) GetChunksBySessionId(ctx context.Context, sessionID string) ([]*entities.RecordingChunk, error) {
	var chunks []*entities.RecordingChunk
	err := r.GetDB().Where("session_id = ?", sessionID).Order("chunk_index ASC").Find(&chunks).Error
	if err != nil {
		return nil, err
	}
	return chunks, nil
}
