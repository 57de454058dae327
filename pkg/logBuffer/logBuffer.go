// Package logBuffer holds event logs that have arrived but are not yet
// confirmed.
//
// An entry stays in the buffer from arrival until the chain head is
// ConfirmationLag blocks past it, or until a reorg removes its block. The
// buffer never filters on arrival since a later reorg can still invalidate an
// entry.
package logBuffer

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ConfirmationLag is the number of blocks the head must be past an entry
// before the entry is treated as final.
const ConfirmationLag uint64 = 2

// PendingLogEntry is a buffered log.
type PendingLogEntry struct {
	BlockHash   common.Hash
	BlockNumber uint64
	Topics      []common.Hash
	Data        []byte
	// ContributingFilters are the filter values the subscription was opened with
	ContributingFilters map[string]any
	// Log is the raw log as delivered by the node
	Log types.Log
}

// NewPendingLogEntry copies the fields of a raw log into a buffer entry.
func NewPendingLogEntry(lg types.Log, filters map[string]any) *PendingLogEntry {
	return &PendingLogEntry{
		BlockHash:           lg.BlockHash,
		BlockNumber:         lg.BlockNumber,
		Topics:              lg.Topics,
		Data:                lg.Data,
		ContributingFilters: filters,
		Log:                 lg,
	}
}

// IsConfirmed reports whether an entry in blockNumber is final at head.
func IsConfirmed(head uint64, blockNumber uint64, lag uint64) bool {
	return head >= blockNumber && head-blockNumber >= lag
}

// LogBuffer is safe for concurrent use. Confirm holds the lock for its whole
// pass so appends and purges never interleave with a confirmation.
type LogBuffer struct {
	mu      sync.Mutex
	entries []*PendingLogEntry
	lag     uint64
}

func NewLogBuffer(lag uint64) *LogBuffer {
	return &LogBuffer{
		entries: make([]*PendingLogEntry, 0),
		lag:     lag,
	}
}

// Append adds an entry unconditionally.
func (b *LogBuffer) Append(entry *PendingLogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, entry)
}

// PurgeBlock drops every entry from the block with the given hash and
// returns how many were dropped.
func (b *LogBuffer) PurgeBlock(blockHash common.Hash) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := make([]*PendingLogEntry, 0, len(b.entries))
	for _, entry := range b.entries {
		if entry.BlockHash != blockHash {
			kept = append(kept, entry)
		}
	}
	purged := len(b.entries) - len(kept)
	b.entries = kept
	return purged
}

// Confirm swaps the buffer for an empty one, re-appends every entry still
// inside the lag window of head and calls handle for every other entry in
// arrival order. It returns the number of confirmed entries.
func (b *LogBuffer) Confirm(head uint64, handle func(entry *PendingLogEntry)) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	previous := b.entries
	b.entries = make([]*PendingLogEntry, 0, len(previous))

	confirmed := 0
	for _, entry := range previous {
		if !IsConfirmed(head, entry.BlockNumber, b.lag) {
			b.entries = append(b.entries, entry)
			continue
		}
		confirmed++
		handle(entry)
	}
	return confirmed
}

// Len returns the number of pending entries.
func (b *LogBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Entries returns a copy of the pending entries.
func (b *LogBuffer) Entries() []*PendingLogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*PendingLogEntry, len(b.entries))
	copy(out, b.entries)
	return out
}
