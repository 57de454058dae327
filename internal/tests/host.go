package tests

import (
	"context"
	"sync"

	"github.com/Layr-Labs/chainwatch/pkg/triggerHost"
)

// RecordingHost keeps every emitted payload in memory.
type RecordingHost struct {
	mu       sync.Mutex
	payloads []any
	stopOnce sync.Once
	stopCh   chan struct{}
}

var _ triggerHost.Host = (*RecordingHost)(nil)

func NewRecordingHost() *RecordingHost {
	return &RecordingHost{stopCh: make(chan struct{})}
}

func (h *RecordingHost) Emit(ctx context.Context, payload any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.payloads = append(h.payloads, payload)
	return nil
}

func (h *RecordingHost) WaitForStop() <-chan struct{} {
	return h.stopCh
}

func (h *RecordingHost) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
}

func (h *RecordingHost) Payloads() []any {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]any, len(h.payloads))
	copy(out, h.payloads)
	return out
}
