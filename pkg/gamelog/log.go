// Package gamelog abstracts the append-only log the game engine replays
// and appends to.
//
// The engine assumes nothing beyond what the Log interface states:
// durable, strictly ordered, replayable byte storage. It does not assume
// atomic multi-writer append ordering; the authoritative writer is the
// only appender by construction. How the bytes are stored (SQLite here,
// a remote log service in production) is the implementation's business.
package gamelog

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Read and Append when the log has not been
// created yet.
var ErrNotFound = errors.New("gamelog: log does not exist")

// Log is the append-only stream contract. Offsets are absolute byte
// positions from the start of the stream. All blocking calls honor ctx.
type Log interface {
	// Exists reports whether the log has been created, independent of
	// whether any bytes have been appended.
	Exists(ctx context.Context) (bool, error)

	// Create makes an empty log. Creating an existing log is an error.
	Create(ctx context.Context) error

	// Append writes b atomically at the tail and returns the offset of
	// the first byte written.
	Append(ctx context.Context, b []byte) (int64, error)

	// Read returns every byte from offset from to the current tail,
	// plus the next offset to read from.
	Read(ctx context.Context, from int64) ([]byte, int64, error)

	// Subscribe streams byte chunks starting at offset from. The channel
	// is closed when ctx is done. Chunk boundaries are arbitrary; callers
	// reassemble records with a wire.Parser.
	Subscribe(ctx context.Context, from int64) (<-chan Chunk, error)
}

// Chunk is one delivery from Subscribe.
type Chunk struct {
	// Data is the raw bytes, in stream order.
	Data []byte
	// Next is the offset immediately after Data.
	Next int64
	// Err is set on a terminal delivery failure; the channel closes after.
	Err error
}
