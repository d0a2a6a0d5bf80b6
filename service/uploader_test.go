package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"recording-ingest/config"
	"recording-ingest/dto"
	"recording-ingest/storage"
)

type memStore struct {
	mu           sync.Mutex
	bucket       string
	objects      map[string][]byte
	contentTypes map[string]string
	puts         []string
	putErr       error
	aclErr       error
	aclCalls     int
}

func newMemStore(bucket string) *memStore {
	return &memStore{
		bucket:       bucket,
		objects:      map[string][]byte{},
		contentTypes: map[string]string{},
	}
}

func (s *memStore) Put(ctx context.Context, key string, payload []byte, contentType string, cacheControl string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return "", s.putErr
	}
	s.objects[key] = append([]byte(nil), payload...)
	s.contentTypes[key] = contentType
	s.puts = append(s.puts, key)
	return "https://cdn.example.com/" + s.bucket + "/" + key, nil
}

func (s *memStore) MakePublic(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aclCalls++
	return s.aclErr
}

func (s *memStore) Bucket() string {
	return s.bucket
}

type memFactory struct {
	store *memStore
	err   error
	calls int
}

func (f *memFactory) New(ctx context.Context) (storage.ObjectStore, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.store, nil
}

func newTestUploader(store *memStore, publicRead bool) (*uploader, *memFactory) {
	factory := &memFactory{store: store}
	cfg := &config.Config{
		Storage: config.Storage{
			Bucket:     store.bucket,
			PublicRead: publicRead,
		},
	}
	u := NewUploader(factory, cfg, nil, nil).(*uploader)
	u.clock = func() time.Time { return time.UnixMilli(1700000100000) }
	return u, factory
}

func TestPutSegmentWritesIndexQualifiedKey(t *testing.T) {
	store := newMemStore("recordings")
	u, _ := newTestUploader(store, false)

	result, err := u.PutSegment(context.Background(), "abc123ts", 0, []byte("payload"), "video/webm")
	if err != nil {
		t.Fatalf("PutSegment failed: %v", err)
	}
	if result.Key != "abc123ts/chunks/000000.webm" {
		t.Errorf("unexpected key: %q", result.Key)
	}
	if result.URL == "" {
		t.Errorf("expected a resolvable address")
	}
	if ct := store.contentTypes[result.Key]; ct != "video/webm" {
		t.Errorf("content type not forwarded, got %q", ct)
	}
}

func TestPutSegmentIsIdempotentPerIndex(t *testing.T) {
	store := newMemStore("recordings")
	u, _ := newTestUploader(store, false)
	ctx := context.Background()

	first, err := u.PutSegment(ctx, "abc123ts", 3, []byte("first"), "video/webm")
	if err != nil {
		t.Fatalf("first PutSegment failed: %v", err)
	}
	second, err := u.PutSegment(ctx, "abc123ts", 3, []byte("second"), "video/webm")
	if err != nil {
		t.Fatalf("second PutSegment failed: %v", err)
	}

	if first.Key != second.Key {
		t.Fatalf("same (session, index) yielded different keys: %q vs %q", first.Key, second.Key)
	}
	if got := string(store.objects[first.Key]); got != "second" {
		t.Errorf("expected last writer to win, object holds %q", got)
	}
	if len(store.puts) != 2 {
		t.Errorf("expected 2 write attempts, got %d", len(store.puts))
	}
}

func TestPutSegmentRejectsBadSessionBeforeAnyStoreCall(t *testing.T) {
	store := newMemStore("recordings")
	u, factory := newTestUploader(store, false)

	_, err := u.PutSegment(context.Background(), "bad id!", 0, []byte("x"), "video/webm")
	if !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
	if factory.calls != 0 {
		t.Errorf("validation failure must not touch storage, factory called %d times", factory.calls)
	}
}

func TestPutSegmentRejectsNegativeIndex(t *testing.T) {
	store := newMemStore("recordings")
	u, factory := newTestUploader(store, false)

	_, err := u.PutSegment(context.Background(), "abc123ts", -1, []byte("x"), "video/webm")
	if !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("expected ErrInvalidIndex, got %v", err)
	}
	if factory.calls != 0 {
		t.Errorf("validation failure must not touch storage, factory called %d times", factory.calls)
	}
}

func TestPutSegmentSurfacesStorageWriteError(t *testing.T) {
	store := newMemStore("recordings")
	store.putErr = errors.New("backend unavailable")
	u, _ := newTestUploader(store, false)

	_, err := u.PutSegment(context.Background(), "abc123ts", 0, []byte("x"), "video/webm")

	var writeErr *StorageWriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("expected StorageWriteError, got %v", err)
	}
	if !errors.Is(err, store.putErr) {
		t.Errorf("backend detail should be preserved for the caller")
	}
}

func TestPutSegmentSurfacesCredentialFailure(t *testing.T) {
	factory := &memFactory{err: errors.Join(storage.ErrCredentialResolution, errors.New("bad blob"))}
	cfg := &config.Config{Storage: config.Storage{Bucket: "recordings"}}
	u := NewUploader(factory, cfg, nil, nil)

	_, err := u.PutSegment(context.Background(), "abc123ts", 0, []byte("x"), "video/webm")
	if !errors.Is(err, storage.ErrCredentialResolution) {
		t.Fatalf("expected credential resolution failure, got %v", err)
	}
}

func TestMakePublicFailureDoesNotFailUpload(t *testing.T) {
	store := newMemStore("recordings")
	store.aclErr = errors.New("bucket policy forbids object ACLs")
	u, _ := newTestUploader(store, true)

	_, err := u.PutSegment(context.Background(), "abc123ts", 0, []byte("x"), "video/webm")
	if err != nil {
		t.Fatalf("ACL failure must be swallowed, got %v", err)
	}
	if store.aclCalls != 1 {
		t.Errorf("expected one MakePublic attempt, got %d", store.aclCalls)
	}
}

func TestPutManifestWritesTerminalRecord(t *testing.T) {
	store := newMemStore("recordings")
	u, _ := newTestUploader(store, false)

	result, err := u.PutManifest(context.Background(), ManifestInput{
		SessionID:   "abc123ts",
		TotalChunks: 3,
		MimeType:    "video/webm;codecs=vp9,opus",
		StartedAt:   time.UnixMilli(1700000000000),
		EndedAt:     time.UnixMilli(1700000012000),
	})
	if err != nil {
		t.Fatalf("PutManifest failed: %v", err)
	}
	if result.Key != "abc123ts/manifest.json" {
		t.Fatalf("unexpected manifest key: %q", result.Key)
	}

	var m dto.Manifest
	if err := json.Unmarshal(store.objects[result.Key], &m); err != nil {
		t.Fatalf("manifest is not valid JSON: %v", err)
	}
	if m.SessionID != "abc123ts" || m.TotalChunks != 3 {
		t.Errorf("unexpected manifest identity: %+v", m)
	}
	if m.StartedAt != 1700000000000 || m.EndedAt != 1700000012000 {
		t.Errorf("unexpected manifest timestamps: %+v", m)
	}
	if m.UploadedAt != 1700000100000 {
		t.Errorf("uploadedAt should come from the coordinator clock, got %d", m.UploadedAt)
	}
	if m.Bucket != "recordings" || m.Version != dto.ManifestVersion {
		t.Errorf("unexpected manifest envelope: %+v", m)
	}
	if ct := store.contentTypes[result.Key]; ct != "application/json" {
		t.Errorf("manifest content type %q", ct)
	}
}

func TestPutManifestLastWriterWins(t *testing.T) {
	store := newMemStore("recordings")
	u, _ := newTestUploader(store, false)
	ctx := context.Background()

	base := ManifestInput{
		SessionID: "abc123ts",
		MimeType:  "video/webm",
		StartedAt: time.UnixMilli(1700000000000),
		EndedAt:   time.UnixMilli(1700000012000),
	}

	base.TotalChunks = 3
	if _, err := u.PutManifest(ctx, base); err != nil {
		t.Fatalf("first PutManifest failed: %v", err)
	}
	base.TotalChunks = 5
	if _, err := u.PutManifest(ctx, base); err != nil {
		t.Fatalf("second PutManifest failed: %v", err)
	}

	var m dto.Manifest
	if err := json.Unmarshal(store.objects["abc123ts/manifest.json"], &m); err != nil {
		t.Fatalf("manifest is not valid JSON: %v", err)
	}
	if m.TotalChunks != 5 {
		t.Errorf("expected the later manifest only, got totalChunks=%d", m.TotalChunks)
	}
}

func TestPutManifestRejectsBadSession(t *testing.T) {
	store := newMemStore("recordings")
	u, factory := newTestUploader(store, false)

	_, err := u.PutManifest(context.Background(), ManifestInput{SessionID: "nope"})
	if !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
	if factory.calls != 0 {
		t.Errorf("validation failure must not touch storage")
	}
}
