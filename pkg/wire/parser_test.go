package wire

import (
	"math/rand"
	"testing"
)

func encodeAll(t *testing.T, events []Event) []byte {
	t.Helper()
	var out []byte
	for _, e := range events {
		b, err := e.Encode()
		if err != nil {
			t.Fatalf("Encode(%+v): %v", e, err)
		}
		out = append(out, b[:]...)
	}
	return out
}

func sampleEvents(n int) []Event {
	rng := rand.New(rand.NewSource(7))
	events := make([]Event, n)
	for i := range events {
		events[i] = Event{Edge: rng.Intn(MaxEdge + 1), Team: rng.Intn(TeamCount)}
	}
	return events
}

func feedAll(t *testing.T, p *Parser, data []byte, chunkSizes func(remaining int) int) []Event {
	t.Helper()
	var got []Event
	for len(data) > 0 {
		n := chunkSizes(len(data))
		evs, err := p.Feed(data[:n])
		if err != nil {
			t.Fatalf("Feed: %v", err)
		}
		got = append(got, evs...)
		data = data[n:]
	}
	return got
}

func sameEvents(a, b []Event) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFeedSingleChunk(t *testing.T) {
	events := sampleEvents(50)
	data := encodeAll(t, events)
	var p Parser
	got, err := p.Feed(data)
	if err != nil {
		t.Fatal(err)
	}
	if !sameEvents(got, events) {
		t.Fatal("single-chunk feed did not reproduce the event list")
	}
	if p.Buffered() != 0 {
		t.Fatalf("Buffered = %d after whole-record feed, want 0", p.Buffered())
	}
}

func TestFeedChunkIndependence(t *testing.T) {
	events := sampleEvents(200)
	data := encodeAll(t, events)

	oneByte := func(int) int { return 1 }
	rng := rand.New(rand.NewSource(42))
	random := func(remaining int) int {
		n := 1 + rng.Intn(7)
		if n > remaining {
			n = remaining
		}
		return n
	}

	var p1, p2 Parser
	byByte := feedAll(t, &p1, data, oneByte)
	byRandom := feedAll(t, &p2, data, random)

	if !sameEvents(byByte, events) {
		t.Fatal("one-byte chunking diverged from the event list")
	}
	if !sameEvents(byRandom, events) {
		t.Fatal("random chunking diverged from the event list")
	}
}

func TestFeedRecordSplitAcrossThreeChunks(t *testing.T) {
	events := []Event{{Edge: 123456, Team: 2}}
	data := encodeAll(t, events)
	var p Parser

	evs, err := p.Feed(data[:1])
	if err != nil || len(evs) != 0 {
		t.Fatalf("after 1 byte: events=%v err=%v, want none", evs, err)
	}
	if p.Buffered() != 1 {
		t.Fatalf("Buffered = %d, want 1", p.Buffered())
	}
	evs, err = p.Feed(data[1:2])
	if err != nil || len(evs) != 0 {
		t.Fatalf("after 2 bytes: events=%v err=%v, want none", evs, err)
	}
	evs, err = p.Feed(data[2:])
	if err != nil {
		t.Fatal(err)
	}
	if !sameEvents(evs, events) {
		t.Fatalf("completed record = %v, want %v", evs, events)
	}
	if p.Buffered() != 0 {
		t.Fatalf("Buffered = %d after completion, want 0", p.Buffered())
	}
}

func TestFeedEmptyChunk(t *testing.T) {
	var p Parser
	evs, err := p.Feed(nil)
	if err != nil || len(evs) != 0 {
		t.Fatalf("Feed(nil) = %v, %v; want no events, no error", evs, err)
	}
}

func TestResetDiscardsPartial(t *testing.T) {
	events := sampleEvents(3)
	data := encodeAll(t, events)
	var p Parser
	if _, err := p.Feed(data[:4]); err != nil { // one whole record + 1 stray byte
		t.Fatal(err)
	}
	if p.Buffered() != 1 {
		t.Fatalf("Buffered = %d, want 1", p.Buffered())
	}
	p.Reset()
	if p.Buffered() != 0 {
		t.Fatal("Reset should discard buffered bytes")
	}
	// After a reset the parser accepts a fresh aligned stream.
	evs, err := p.Feed(data[:RecordSize])
	if err != nil {
		t.Fatal(err)
	}
	if !sameEvents(evs, events[:1]) {
		t.Fatalf("post-reset feed = %v, want %v", evs, events[:1])
	}
}

func TestFeedDoesNotAliasCallerChunk(t *testing.T) {
	events := sampleEvents(2)
	data := encodeAll(t, events)
	chunk := make([]byte, 4)
	copy(chunk, data[:4])
	var p Parser
	if _, err := p.Feed(chunk); err != nil {
		t.Fatal(err)
	}
	// Caller reuses its buffer; the parser's partial byte must survive.
	for i := range chunk {
		chunk[i] = 0xFF
	}
	evs, err := p.Feed(data[4:])
	if err != nil {
		t.Fatal(err)
	}
	if !sameEvents(evs, events[1:]) {
		t.Fatalf("buffered byte was clobbered: got %v, want %v", evs, events[1:])
	}
}
