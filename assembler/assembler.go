// Package assembler buffers streamed ProposalParts per (height, round)
// and reassembles them into a complete execution payload once the
// terminal part arrives, tolerating out-of-order delivery.
//
// Grounded on the teacher's persistence.StateSyncer buffering-and-
// progress-check pattern (persistence/sync.go), generalized from
// range-based block-sync buffering to per-height part buffering.
package assembler

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/emerald-consensus/emerald/codec"
	"github.com/emerald-consensus/emerald/types"
)

type key struct {
	height types.Height
	round  types.Round
}

type buffer struct {
	parts    map[uint32][]byte
	lastSeen bool
	lastIdx  uint32
}

// Assembler buffers ProposalParts for in-flight (height, round) pairs.
type Assembler struct {
	mu      sync.Mutex
	buffers map[key]*buffer
	closed  map[key]bool
}

// New creates an empty Assembler.
func New() *Assembler {
	return &Assembler{buffers: make(map[key]*buffer), closed: make(map[key]bool)}
}

// AddPart records one proposal part. It returns the reassembled payload
// once the terminal part has arrived and every preceding index has been
// seen; otherwise it returns (nil, false). A part for a (height, round)
// whose slot has already completed is dropped silently: the slot stays
// closed until DiscardHeight clears it (Discard does not).
func (a *Assembler) AddPart(part *types.ProposalPart) (*types.ExecutionPayload, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	k := key{height: part.Height, round: part.Round}
	if a.closed[k] {
		return nil, false, nil
	}

	buf, ok := a.buffers[k]
	if !ok {
		buf = &buffer{parts: make(map[uint32][]byte)}
		a.buffers[k] = buf
	}

	if existing, dup := buf.parts[part.PartIndex]; dup {
		if !bytes.Equal(existing, part.Bytes) {
			return nil, false, fmt.Errorf("conflicting bytes for proposal part index %d at height %d round %d", part.PartIndex, part.Height, part.Round)
		}
		return nil, false, nil
	}
	buf.parts[part.PartIndex] = part.Bytes

	if part.IsLast {
		if buf.lastSeen && buf.lastIdx != part.PartIndex {
			return nil, false, fmt.Errorf("conflicting terminal part index at height %d round %d", part.Height, part.Round)
		}
		buf.lastSeen = true
		buf.lastIdx = part.PartIndex
	}

	if !buf.lastSeen {
		return nil, false, nil
	}
	if uint32(len(buf.parts)) != buf.lastIdx+1 {
		return nil, false, nil
	}

	indices := make([]int, 0, len(buf.parts))
	for idx := range buf.parts {
		indices = append(indices, int(idx))
	}
	sort.Ints(indices)
	for i, idx := range indices {
		if uint32(idx) != uint32(i) {
			return nil, false, fmt.Errorf("gap in proposal parts at height %d round %d: missing index %d", part.Height, part.Round, i)
		}
	}

	var raw []byte
	for _, idx := range indices {
		raw = append(raw, buf.parts[uint32(idx)]...)
	}

	payload, err := codec.DecodePayload(raw)
	if err != nil {
		return nil, false, fmt.Errorf("decode reassembled payload: %w", err)
	}

	delete(a.buffers, k)
	a.closed[k] = true
	return payload, true, nil
}

// Discard drops any buffered parts for (height, round), used when a
// round is abandoned (e.g. on view change or height advance) without
// ever completing. It does not mark the slot closed: an abandoned round
// is free to be reopened, unlike one that has already assembled a payload.
func (a *Assembler) Discard(height types.Height, round types.Round) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.buffers, key{height: height, round: round})
}

// DiscardHeight drops every buffered and closed round for height, used
// once a height has decided and its round keys will never recur.
func (a *Assembler) DiscardHeight(height types.Height) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for k := range a.buffers {
		if k.height == height {
			delete(a.buffers, k)
		}
	}
	for k := range a.closed {
		if k.height == height {
			delete(a.closed, k)
		}
	}
}
