// Package wire defines the binary record formats of the game log and a
// chunk-safe streaming parser for reading them back.
//
// The log holds exactly two record shapes, distinguished by position
// rather than by tag bytes:
//
//   - A single 8-byte header at offset 0: the game epoch as a big-endian
//     unsigned millisecond timestamp. Its presence lets a reader tell
//     "log exists with zero events" apart from "log does not exist",
//     and a changed epoch signals a game reset.
//
//   - Zero or more 3-byte event records after the header. Each packs one
//     edge placement as (edgeID << 2) | teamID, emitted big-endian:
//     byte 0 carries bits 23..16, byte 1 bits 15..8, byte 2 bits 7..0.
//     22 bits of edge ID and 2 bits of team.
//
// The packing is a binary compatibility contract with every stored log,
// not a convenience encoding; the constants below must never change for
// an existing deployment.
package wire

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	// RecordSize is the fixed width of one event record in bytes.
	RecordSize = 3

	// TeamBits is the width of the team field in a packed record.
	TeamBits = 2

	// TeamCount is the number of addressable teams.
	TeamCount = 1 << TeamBits

	// MaxEdge is the largest edge ID a record can carry.
	MaxEdge = 1<<(RecordSize*8-TeamBits) - 1

	// HeaderSize is the width of the epoch header record in bytes.
	HeaderSize = 8
)

// Event is one edge placement: the unit of mutation carried by the log.
type Event struct {
	Edge int
	Team int
}

// Valid reports whether the event fits the record format.
func (e Event) Valid() bool {
	return e.Edge >= 0 && e.Edge <= MaxEdge && e.Team >= 0 && e.Team < TeamCount
}

// Encode packs the event into its 3-byte wire form.
func (e Event) Encode() ([RecordSize]byte, error) {
	var b [RecordSize]byte
	if !e.Valid() {
		return b, fmt.Errorf("wire: event {edge=%d team=%d} does not fit the record format", e.Edge, e.Team)
	}
	packed := uint32(e.Edge)<<TeamBits | uint32(e.Team)
	b[0] = byte(packed >> 16)
	b[1] = byte(packed >> 8)
	b[2] = byte(packed)
	return b, nil
}

// DecodeEvent unpacks one event from the first RecordSize bytes of b.
func DecodeEvent(b []byte) (Event, error) {
	if len(b) < RecordSize {
		return Event{}, fmt.Errorf("wire: short event record: %d bytes, need %d", len(b), RecordSize)
	}
	packed := uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
	return Event{
		Edge: int(packed >> TeamBits),
		Team: int(packed & (TeamCount - 1)),
	}, nil
}

// EncodeHeader packs a game epoch into the 8-byte header record.
func EncodeHeader(epoch time.Time) [HeaderSize]byte {
	var b [HeaderSize]byte
	binary.BigEndian.PutUint64(b[:], uint64(epoch.UnixMilli()))
	return b
}

// DecodeHeader unpacks the epoch from the first HeaderSize bytes of b.
func DecodeHeader(b []byte) (time.Time, error) {
	if len(b) < HeaderSize {
		return time.Time{}, fmt.Errorf("wire: short header: %d bytes, need %d", len(b), HeaderSize)
	}
	ms := binary.BigEndian.Uint64(b[:HeaderSize])
	return time.UnixMilli(int64(ms)).UTC(), nil
}
