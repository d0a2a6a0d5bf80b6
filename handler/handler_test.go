package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recording-ingest/config"
	"recording-ingest/dto"
	"recording-ingest/service"
	"recording-ingest/storage"
	"recording-ingest/vapi"
)

type fakeUploader struct {
	segErr  error
	manErr  error
	calls   int
	lastIdx int
	lastIn  service.ManifestInput
}

func (f *fakeUploader) PutSegment(ctx context.Context, sessionID string, index int, payload []byte, mimeType string) (*service.UploadResult, error) {
	f.calls++
	f.lastIdx = index
	if !service.ValidSessionID(sessionID) {
		return nil, service.ErrInvalidSession
	}
	if f.segErr != nil {
		return nil, f.segErr
	}
	key := service.ChunkObjectName(sessionID, index, mimeType)
	return &service.UploadResult{Key: key, URL: "https://cdn.example.com/recordings/" + key}, nil
}

func (f *fakeUploader) PutManifest(ctx context.Context, in service.ManifestInput) (*service.UploadResult, error) {
	f.calls++
	f.lastIn = in
	if f.manErr != nil {
		return nil, f.manErr
	}
	key := service.ManifestObjectName(in.SessionID)
	return &service.UploadResult{Key: key, URL: "https://cdn.example.com/recordings/" + key}, nil
}

func setupRouter(deps ServiceDependencies) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health/assistant", AssistantHealth(deps))
	v1 := r.Group("/v1")
	v1.POST("/sessions/:sessionId/chunks/:index", UploadChunk(deps))
	v1.POST("/sessions/:sessionId/manifest", UploadManifest(deps))
	return r
}

func TestUploadChunkSuccess(t *testing.T) {
	up := &fakeUploader{}
	r := setupRouter(ServiceDependencies{Uploader: up})

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/abc123ts/chunks/2", bytes.NewReader([]byte("chunk-bytes")))
	req.Header.Set("Content-Type", "video/webm")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp dto.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "abc123ts/chunks/000002.webm", resp.Key)
	assert.NotEmpty(t, resp.Url)
	assert.Equal(t, 2, up.lastIdx)
}

func TestUploadChunkBadSession(t *testing.T) {
	up := &fakeUploader{}
	r := setupRouter(ServiceDependencies{Uploader: up})

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/bad%20id!/chunks/0", bytes.NewReader([]byte("x")))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadChunkNonNumericIndex(t *testing.T) {
	up := &fakeUploader{}
	r := setupRouter(ServiceDependencies{Uploader: up})

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/abc123ts/chunks/first", bytes.NewReader([]byte("x")))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, up.calls, "a bad index must be rejected before the coordinator runs")
}

func TestUploadChunkCredentialFailure(t *testing.T) {
	up := &fakeUploader{segErr: errors.Join(storage.ErrCredentialResolution, errors.New("no shapes matched"))}
	r := setupRouter(ServiceDependencies{Uploader: up})

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/abc123ts/chunks/0", bytes.NewReader([]byte("x")))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestUploadChunkBackendFailure(t *testing.T) {
	up := &fakeUploader{segErr: &service.StorageWriteError{Op: "put chunk", Key: "k", Err: errors.New("connection reset")}}
	r := setupRouter(ServiceDependencies{Uploader: up})

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/abc123ts/chunks/0", bytes.NewReader([]byte("x")))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestUploadManifestSuccess(t *testing.T) {
	up := &fakeUploader{}
	r := setupRouter(ServiceDependencies{Uploader: up})

	body, _ := json.Marshal(dto.ManifestRequest{
		TotalChunks: 3,
		MimeType:    "video/webm;codecs=vp9,opus",
		StartedAt:   1700000000000,
		EndedAt:     1700000012000,
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/abc123ts/manifest", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp dto.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "abc123ts/manifest.json", resp.Key)
	assert.Equal(t, 3, up.lastIn.TotalChunks)
	assert.Equal(t, int64(1700000000000), up.lastIn.StartedAt.UnixMilli())
}

func TestUploadManifestRejectsMalformedBody(t *testing.T) {
	up := &fakeUploader{}
	r := setupRouter(ServiceDependencies{Uploader: up})

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/abc123ts/manifest", bytes.NewReader([]byte(`{"totalChunks":-2}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, up.calls)
}

func TestAssistantHealthEndpoint(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/assistant":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"id":"a1"},{"id":"a2"}]`))
		case "/assistant/a1":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer backend.Close()

	client := vapi.NewClient(config.Vapi{BaseURL: backend.URL, APIKey: "key", AssistantID: "a1"})
	r := setupRouter(ServiceDependencies{Uploader: &fakeUploader{}, Assistant: client})

	req := httptest.NewRequest(http.MethodGet, "/health/assistant", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.AssistantHealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Healthy)
	assert.Equal(t, 2, resp.Assistants)
	assert.True(t, resp.AssistantReachable)
}

func TestAssistantHealthEndpointBackendDown(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer backend.Close()

	client := vapi.NewClient(config.Vapi{BaseURL: backend.URL, APIKey: "bad"})
	r := setupRouter(ServiceDependencies{Uploader: &fakeUploader{}, Assistant: client})

	req := httptest.NewRequest(http.MethodGet, "/health/assistant", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}
