package cmd

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Layr-Labs/chainwatch/pkg/eventBus"
	"github.com/Layr-Labs/chainwatch/pkg/eventBus/eventBusTypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func Test_PrintNotifications(t *testing.T) {
	l := zaptest.NewLogger(t)
	eb := eventBus.NewEventBus(l)
	out := &syncBuffer{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		printNotifications(ctx, eb, out, l)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		eb.Publish(&eventBusTypes.Event{
			Name: eventBusTypes.Event_NotificationEmitted,
			Data: &eventBusTypes.NotificationData{Payload: map[string]any{"value": 1}},
		})
		return out.String() != ""
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
	assert.Contains(t, out.String(), `{"value":1}`+"\n")
}

func Test_SignerFromConfig(t *testing.T) {
	t.Run("Should use a throwaway key for reads without a configured key", func(t *testing.T) {
		signer, err := signerFromConfig("", true)
		require.Nil(t, err)
		assert.NotNil(t, signer)
	})
	t.Run("Should require a key for writes", func(t *testing.T) {
		_, err := signerFromConfig("", false)
		assert.NotNil(t, err)
	})
	t.Run("Should load a configured key", func(t *testing.T) {
		signer, err := signerFromConfig("0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318", false)
		require.Nil(t, err)
		assert.Equal(t, "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", signer.Address().Hex())
	})
}
