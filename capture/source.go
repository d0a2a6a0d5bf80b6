package capture

import "context"

// Source is a continuous local capture stream. One Source is owned by at
// most one recording session at a time.
type Source interface {
	// Open acquires the underlying device or stream.
	Open(ctx context.Context) error
	// Drain returns the bytes buffered since the previous Drain and
	// resets the buffer.
	Drain() []byte
	MimeType() string
	Close() error
}
