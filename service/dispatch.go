package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Segment is one fixed-interval slice of a recording, handed to the
// upload workers and never mutated afterwards.
type Segment struct {
	SessionID string
	Index     int
	Payload   []byte
	MimeType  string
}

// SegmentSink accepts segments for asynchronous upload.
type SegmentSink interface {
	Enqueue(seg Segment)
}

// UploadQueue uploads segments on a fixed worker pool so the capture
// timeline never waits on storage. Segment failures are logged, not
// retried; each segment targets its own index-qualified key, so
// out-of-order completion is harmless.
type UploadQueue struct {
	jobs chan Segment
	wg   sync.WaitGroup
}

func NewUploadQueue(ctx context.Context, uploader Uploader, numWorkers int) *UploadQueue {
	if numWorkers < 1 {
		numWorkers = 1
	}

	q := &UploadQueue{
		jobs: make(chan Segment, 64),
	}

	for i := 1; i <= numWorkers; i++ {
		q.wg.Add(1)
		go func(workerId int) {
			defer q.wg.Done()
			for seg := range q.jobs {
				if _, err := uploader.PutSegment(ctx, seg.SessionID, seg.Index, seg.Payload, seg.MimeType); err != nil {
					zerolog.Ctx(ctx).Warn().
						Err(err).
						Int("worker_id", workerId).
						Str("session_id", seg.SessionID).
						Int("chunk_index", seg.Index).
						Msg("chunk upload failed")
				}
			}
		}(i)
	}

	return q
}

func (q *UploadQueue) Enqueue(seg Segment) {
	q.jobs <- seg
}

// Close stops accepting segments and waits for in-flight uploads.
func (q *UploadQueue) Close() {
	close(q.jobs)
	q.wg.Wait()
}
