package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"recording-ingest/capture"
	"recording-ingest/constant"
)

const DefaultSegmentInterval = 5 * time.Second

// SessionRecorder drives one recording run: it owns the capture
// lifecycle, cuts the stream into segments at a fixed interval, and
// hands each segment to the upload workers without waiting on them.
// State machine: IDLE -> RECORDING -> STOPPED, never back.
type SessionRecorder struct {
	mu        sync.Mutex
	state     constant.RecorderState
	sessionID string
	mimeType  string
	interval  time.Duration
	source    capture.Source
	sink      SegmentSink
	uploader  Uploader

	segments  int
	startedAt time.Time
	endedAt   time.Time

	done       chan struct{}
	stopTicker func()

	// clock and newTicker are injectable for tests.
	clock     func() time.Time
	newTicker func(d time.Duration) (<-chan time.Time, func())
}

func NewSessionRecorder(sessionID string, interval time.Duration, source capture.Source, sink SegmentSink, uploader Uploader) (*SessionRecorder, error) {
	if !ValidSessionID(sessionID) {
		return nil, ErrInvalidSession
	}
	if interval <= 0 {
		interval = DefaultSegmentInterval
	}
	return &SessionRecorder{
		state:     constant.RecorderStateIdle,
		sessionID: sessionID,
		mimeType:  source.MimeType(),
		interval:  interval,
		source:    source,
		sink:      sink,
		uploader:  uploader,
		clock:     time.Now,
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}, nil
}

// Start acquires the capture source and begins the interval timer. On
// acquisition failure the recorder stays IDLE.
func (r *SessionRecorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case constant.RecorderStateRecording:
		return ErrAlreadyRecording
	case constant.RecorderStateStopped:
		return ErrSessionStopped
	}

	if err := r.source.Open(ctx); err != nil {
		return errors.Join(ErrDeviceUnavailable, err)
	}

	r.state = constant.RecorderStateRecording
	r.startedAt = r.clock()
	r.segments = 0

	ticks, stop := r.newTicker(r.interval)
	r.stopTicker = stop
	r.done = make(chan struct{})
	go r.loop(ctx, ticks)

	zerolog.Ctx(ctx).Info().
		Str("session_id", r.sessionID).
		Dur("interval", r.interval).
		Msg("recording started")

	return nil
}

func (r *SessionRecorder) loop(ctx context.Context, ticks <-chan time.Time) {
	for {
		select {
		case <-ticks:
			r.flush(ctx)
		case <-r.done:
			return
		}
	}
}

// flush drains the buffered capture data into one segment and enqueues
// it. Capture continues regardless of upload outcome.
func (r *SessionRecorder) flush(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != constant.RecorderStateRecording {
		return
	}
	r.flushLocked(ctx)
}

func (r *SessionRecorder) flushLocked(ctx context.Context) {
	data := r.source.Drain()
	if len(data) == 0 {
		return
	}

	seg := Segment{
		SessionID: r.sessionID,
		Index:     r.segments,
		Payload:   data,
		MimeType:  r.mimeType,
	}
	r.segments++
	r.sink.Enqueue(seg)
}

// Stop releases the capture source, flushes any remaining partial
// segment, and issues exactly one manifest write. In-flight segment
// uploads are not awaited or cancelled; the manifest may become visible
// before every chunk is durable (optimistic finalization).
func (r *SessionRecorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.state != constant.RecorderStateRecording {
		r.mu.Unlock()
		return ErrNotRecording
	}

	r.stopTicker()
	close(r.done)

	if err := r.source.Close(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("session_id", r.sessionID).Msg("failed to close capture source")
	}

	r.flushLocked(ctx)
	r.state = constant.RecorderStateStopped
	r.endedAt = r.clock()

	in := ManifestInput{
		SessionID:   r.sessionID,
		TotalChunks: r.segments,
		MimeType:    r.mimeType,
		StartedAt:   r.startedAt,
		EndedAt:     r.endedAt,
	}
	r.mu.Unlock()

	zerolog.Ctx(ctx).Info().
		Str("session_id", in.SessionID).
		Int("total_chunks", in.TotalChunks).
		Msg("recording stopped, writing manifest")

	_, err := r.uploader.PutManifest(ctx, in)
	return err
}

func (r *SessionRecorder) State() constant.RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *SessionRecorder) Segments() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.segments
}
