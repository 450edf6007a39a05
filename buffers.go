package trickle

import (
	"strings"
	"sync"
)

// Buffers owns the two growing output streams for one logical request
// plus the scanner's carry state. A single session writes at a time;
// the mutex exists because snapshots may be read from the scheduler's
// timer goroutine.
//
// Buffers survive retry attempts: a new session continues appending to
// the same accumulators, so text already shown to the user is never
// erased by a retry.
type Buffers struct {
	mu        sync.Mutex
	main      strings.Builder
	thinking  strings.Builder
	residue   string
	inside    bool
	truncated bool
	seq       uint64
}

// Snapshot is an immutable copy-on-read view of the buffers. Seq
// increases with every mutation; the scheduler uses it to keep renders
// in mutation order.
type Snapshot struct {
	Main           string
	Thinking       string
	InsideThinking bool
	Truncated      bool
	Seq            uint64
}

// NewBuffers creates empty buffers for one logical request.
func NewBuffers() *Buffers {
	return &Buffers{}
}

// Ingest scans one fragment and appends the resulting spans to the
// accumulators. It returns the post-mutation snapshot.
func (b *Buffers) Ingest(fragment string) Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	res := Scan(b.residue, b.inside, fragment)
	b.main.WriteString(res.Main)
	b.thinking.WriteString(res.Thinking)
	b.residue = res.Residue
	b.inside = res.InsideThinking
	b.seq++
	return b.snapshotLocked()
}

// FlushResidue is called exactly once at stream end. Any outstanding
// residue can no longer become a marker, so it is appended as plain
// text to whichever stream is active. A stream that ends inside a
// thinking region finalizes that region as truncated rather than
// merging it into the answer.
func (b *Buffers) FlushResidue() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.residue != "" {
		if b.inside {
			b.thinking.WriteString(b.residue)
		} else {
			b.main.WriteString(b.residue)
		}
		b.residue = ""
	}
	if b.inside {
		b.truncated = true
		b.inside = false
	}
	b.seq++
	return b.snapshotLocked()
}

// Snapshot returns the current buffer state.
func (b *Buffers) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *Buffers) snapshotLocked() Snapshot {
	return Snapshot{
		Main:           b.main.String(),
		Thinking:       b.thinking.String(),
		InsideThinking: b.inside,
		Truncated:      b.truncated,
		Seq:            b.seq,
	}
}
