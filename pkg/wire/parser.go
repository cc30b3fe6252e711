package wire

// Parser turns arbitrarily sized byte chunks into whole event records.
//
// The log service delivers bytes in whatever chunk sizes the transport
// produces, so a record may arrive split across two or more chunks.
// Feed buffers any trailing partial record and emits it only once the
// remaining bytes arrive. The parser knows nothing about game semantics;
// it only reassembles fixed-width records in order.
//
// Parser is not goroutine-safe; each subscription owns its own instance.
type Parser struct {
	rest []byte
}

// Feed consumes one chunk and returns every event completed by it, in
// stream order. Partial trailing bytes (0 to RecordSize-1 of them) are
// retained for the next call.
func (p *Parser) Feed(chunk []byte) ([]Event, error) {
	data := chunk
	if len(p.rest) > 0 {
		data = append(p.rest, chunk...)
	}
	n := len(data) / RecordSize
	events := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		e, err := DecodeEvent(data[i*RecordSize:])
		if err != nil {
			return events, err
		}
		events = append(events, e)
	}
	// Copy the remainder: data may alias the caller's chunk.
	p.rest = append(p.rest[:0], data[n*RecordSize:]...)
	return events, nil
}

// Buffered returns how many partial-record bytes are waiting for more data.
func (p *Parser) Buffered() int { return len(p.rest) }

// Reset discards any buffered partial record. Used after a reconnect,
// where bytes from before the disconnect no longer line up with the
// resumed stream.
func (p *Parser) Reset() { p.rest = p.rest[:0] }
