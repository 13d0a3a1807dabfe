package sse

import (
	"bytes"
	"errors"
	"unicode/utf8"
)

// ErrInvalidUTF8 is returned by Ingest when a chunk is not valid UTF-8.
// The chunk is dropped; the buffer is left as it was before the call.
var ErrInvalidUTF8 = errors.New("chunk is not valid UTF-8")

var delimiter = []byte("\n\n")

// compactThreshold is the consumed prefix size above which the buffer is
// shifted down instead of grown.
const compactThreshold = 4096

// Reassembler accumulates raw upstream chunks and extracts complete event
// blocks as soon as their terminating blank line has arrived.
//
// ┌──────────────┐   ┌──────────────────────┐   ┌─────────┐
// │ chunk []byte │──▶│ Reassembler.Ingest() │──▶│ []Block │
// └──────────────┘   └──────────────────────┘   └─────────┘
//
// The buffer is index based: consumed bytes are skipped by advancing a read
// offset and only reclaimed lazily, so a long stream of small chunks never
// re-copies the pending text on every extraction.
//
// A Reassembler is owned by a single session and is not safe for concurrent use.
type Reassembler struct {
	buf []byte

	// off is the start of unconsumed data in buf.
	off int

	// scanned is the position in buf up to which no delimiter can start,
	// so a partial frame is not searched again on every chunk.
	scanned int
}

// NewReassembler returns an empty Reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{}
}

// Ingest appends chunk to the buffer and returns every block completed by it,
// in stream order. It returns no blocks while a frame is still partial.
func (r *Reassembler) Ingest(chunk []byte) ([]Block, error) {
	if !utf8.Valid(chunk) {
		return nil, ErrInvalidUTF8
	}

	r.compact()
	r.buf = append(r.buf, chunk...)

	var blocks []Block
	for {
		idx := bytes.Index(r.buf[r.scanned:], delimiter)
		if idx < 0 {
			// The last byte may be the first half of a delimiter.
			r.scanned = max(r.off, len(r.buf)-len(delimiter)+1)
			break
		}

		end := r.scanned + idx
		blocks = append(blocks, Block(r.buf[r.off:end]))

		r.off = end + len(delimiter)
		r.scanned = r.off
	}

	return blocks, nil
}

// Buffered returns the number of bytes received but not yet consumed as part
// of a complete block.
func (r *Reassembler) Buffered() int {
	return len(r.buf) - r.off
}

// Pending returns the unconsumed tail of the stream, typically an unterminated
// frame left over when the upstream body ends.
func (r *Reassembler) Pending() Block {
	return Block(r.buf[r.off:])
}

// Reset releases the buffer.
func (r *Reassembler) Reset() {
	r.buf = nil
	r.off = 0
	r.scanned = 0
}

// compact reclaims the consumed prefix once it is large enough to be worth
// a copy, or for free when everything has been consumed.
func (r *Reassembler) compact() {
	if r.off == 0 {
		return
	}

	if r.off == len(r.buf) {
		r.buf = r.buf[:0]
		r.off = 0
		r.scanned = 0
		return
	}

	if r.off < compactThreshold && r.off < len(r.buf)/2 {
		return
	}

	n := copy(r.buf, r.buf[r.off:])
	r.buf = r.buf[:n]
	r.scanned -= r.off
	r.off = 0
}
