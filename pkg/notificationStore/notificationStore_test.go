package notificationStore

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/Layr-Labs/chainwatch/pkg/blockWatcher"
	"github.com/Layr-Labs/chainwatch/pkg/eventBus"
	"github.com/Layr-Labs/chainwatch/pkg/eventBus/eventBusTypes"
	"github.com/Layr-Labs/chainwatch/pkg/parser"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap/zaptest"
)

type memoryStore struct {
	mu            sync.Mutex
	notifications []*Notification
	submissions   []*Submission
}

func (m *memoryStore) InsertNotification(data *eventBusTypes.NotificationData) (*Notification, error) {
	n, err := NewNotification(data)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
	return n, nil
}

func (m *memoryStore) InsertSubmission(data *eventBusTypes.SubmissionData) (*Submission, error) {
	s, err := NewSubmission(data)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submissions = append(m.submissions, s)
	return s, nil
}

func (m *memoryStore) ListNotifications(trigger string, limit int) ([]*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Notification, 0)
	for _, n := range m.notifications {
		if n.Trigger == trigger {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memoryStore) ListSubmissions(sessionId string) ([]*Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Submission, 0)
	for _, s := range m.submissions {
		if s.SessionId == sessionId {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryStore) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notifications), len(m.submissions)
}

func Test_NewNotification(t *testing.T) {
	t.Run("Should lift the block reference out of a decoded log", func(t *testing.T) {
		fields := orderedmap.New[string, any]()
		fields.Set("value", 10)
		n, err := NewNotification(&eventBusTypes.NotificationData{
			Trigger: "transfers",
			ChainId: 1,
			Kind:    "event",
			Payload: &parser.DecodedLog{
				EventName:   "Transfer",
				BlockNumber: 42,
				BlockHash:   common.HexToHash("0x2a"),
				Fields:      fields,
			},
		})
		require.Nil(t, err)
		assert.Equal(t, uint64(42), n.BlockNumber)
		assert.Equal(t, common.HexToHash("0x2a").Hex(), n.BlockHash)

		var decoded map[string]any
		require.Nil(t, json.Unmarshal(n.Payload, &decoded))
		assert.Equal(t, "Transfer", decoded["eventName"])
		assert.Equal(t, map[string]any{"value": float64(10)}, decoded["fields"])
	})
	t.Run("Should lift the block reference out of a transaction notification", func(t *testing.T) {
		n, err := NewNotification(&eventBusTypes.NotificationData{
			Trigger: "payments",
			Kind:    "transaction",
			Payload: &blockWatcher.TransactionNotification{BlockNumber: 7, BlockHash: common.HexToHash("0x07")},
		})
		require.Nil(t, err)
		assert.Equal(t, uint64(7), n.BlockNumber)
	})
	t.Run("Should fail for a payload that cannot be marshalled", func(t *testing.T) {
		_, err := NewNotification(&eventBusTypes.NotificationData{Payload: make(chan int)})
		assert.NotNil(t, err)
	})
}

func Test_NewSubmission(t *testing.T) {
	s, err := NewSubmission(&eventBusTypes.SubmissionData{
		Key:       "k",
		SessionId: "s",
		Function:  "transfer",
		Error:     errors.New("boom"),
	})
	require.Nil(t, err)
	assert.Equal(t, "boom", s.Error)
	assert.Nil(t, s.Payload)

	v, err := s.Payload.Value()
	require.Nil(t, err)
	assert.Nil(t, v)
}

func Test_JsonPayload(t *testing.T) {
	var p JsonPayload
	require.Nil(t, p.Scan([]byte(`{"a":1}`)))
	assert.Equal(t, `{"a":1}`, string(p))

	require.Nil(t, p.Scan(`[1]`))
	assert.Equal(t, `[1]`, string(p))

	require.Nil(t, p.Scan(nil))
	assert.Nil(t, p)

	assert.NotNil(t, p.Scan(12))
}

func Test_Recorder(t *testing.T) {
	l := zaptest.NewLogger(t)

	t.Run("Should record notifications and submissions from the bus", func(t *testing.T) {
		store := &memoryStore{}
		eb := eventBus.NewEventBus(l)
		recorder := NewRecorder(store, l)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			recorder.ListenToEventBus(ctx, eb)
			close(done)
		}()

		// wait for the subscription before publishing
		assert.Eventually(t, func() bool {
			eb.Publish(&eventBusTypes.Event{
				Name: eventBusTypes.Event_NotificationEmitted,
				Data: &eventBusTypes.NotificationData{Trigger: "t", Payload: map[string]any{}},
			})
			n, _ := store.counts()
			return n > 0
		}, time.Second, 10*time.Millisecond)

		eb.Publish(&eventBusTypes.Event{
			Name: eventBusTypes.Event_SubmissionCompleted,
			Data: &eventBusTypes.SubmissionData{SessionId: "abc", Function: "transfer"},
		})
		assert.Eventually(t, func() bool {
			_, s := store.counts()
			return s == 1
		}, time.Second, 10*time.Millisecond)

		cancel()
		<-done

		subs, err := store.ListSubmissions("abc")
		require.Nil(t, err)
		assert.Len(t, subs, 1)
	})
	t.Run("Should reject mistyped event data", func(t *testing.T) {
		recorder := NewRecorder(&memoryStore{}, l)
		err := recorder.Record(&eventBusTypes.Event{Name: eventBusTypes.Event_NotificationEmitted, Data: "nope"})
		assert.NotNil(t, err)
	})
	t.Run("Should ignore unknown events", func(t *testing.T) {
		recorder := NewRecorder(&memoryStore{}, l)
		assert.Nil(t, recorder.Record(&eventBusTypes.Event{Name: "other"}))
	})
}
