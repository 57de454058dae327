// Package notificationStore keeps an audit log of emitted notifications and
// submission results.
package notificationStore

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/Layr-Labs/chainwatch/pkg/blockWatcher"
	"github.com/Layr-Labs/chainwatch/pkg/eventBus/eventBusTypes"
	"github.com/Layr-Labs/chainwatch/pkg/parser"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// JsonPayload is stored in jsonb columns.
type JsonPayload json.RawMessage

func (p JsonPayload) Value() (driver.Value, error) {
	if len(p) == 0 {
		return nil, nil
	}
	return string(p), nil
}

func (p *JsonPayload) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*p = nil
	case []byte:
		*p = append((*p)[:0], v...)
	case string:
		*p = JsonPayload(v)
	default:
		return errors.Errorf("failed to scan jsonb value: %v", value)
	}
	return nil
}

func (p JsonPayload) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("null"), nil
	}
	return p, nil
}

type Notification struct {
	Id          uint64 `gorm:"primaryKey"`
	Trigger     string
	ChainId     uint64
	Kind        string
	BlockNumber uint64
	BlockHash   string
	Payload     JsonPayload `gorm:"type:jsonb"`
	CreatedAt   time.Time
}

type Submission struct {
	Id        uint64 `gorm:"primaryKey"`
	Key       string
	SessionId string
	ChainId   uint64
	Function  string
	Payload   JsonPayload `gorm:"type:jsonb"`
	Error     string
	CreatedAt time.Time
}

type NotificationStore interface {
	InsertNotification(data *eventBusTypes.NotificationData) (*Notification, error)
	InsertSubmission(data *eventBusTypes.SubmissionData) (*Submission, error)
	ListNotifications(trigger string, limit int) ([]*Notification, error)
	ListSubmissions(sessionId string) ([]*Submission, error)
}

// NewNotification flattens notification data into a row. The block
// reference is lifted out of known payload types.
func NewNotification(data *eventBusTypes.NotificationData) (*Notification, error) {
	payload, err := json.Marshal(data.Payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal notification payload")
	}
	n := &Notification{
		Trigger: data.Trigger,
		ChainId: data.ChainId,
		Kind:    data.Kind,
		Payload: payload,
	}
	switch p := data.Payload.(type) {
	case *parser.DecodedLog:
		n.BlockNumber = p.BlockNumber
		n.BlockHash = p.BlockHash.Hex()
	case *blockWatcher.TransactionNotification:
		n.BlockNumber = p.BlockNumber
		n.BlockHash = p.BlockHash.Hex()
	}
	return n, nil
}

func NewSubmission(data *eventBusTypes.SubmissionData) (*Submission, error) {
	s := &Submission{
		Key:       data.Key,
		SessionId: data.SessionId,
		ChainId:   data.ChainId,
		Function:  data.Function,
	}
	if data.Payload != nil {
		payload, err := json.Marshal(data.Payload)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal submission payload")
		}
		s.Payload = payload
	}
	if data.Error != nil {
		s.Error = data.Error.Error()
	}
	return s, nil
}

// Recorder drains an event bus consumer into a NotificationStore.
type Recorder struct {
	store  NotificationStore
	logger *zap.Logger
}

func NewRecorder(store NotificationStore, l *zap.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: l,
	}
}

// ListenToEventBus subscribes to eb and records events until ctx is done.
func (r *Recorder) ListenToEventBus(ctx context.Context, eb eventBusTypes.IEventBus) {
	consumer := &eventBusTypes.Consumer{
		Id:      "notificationStore",
		Context: ctx,
		Channel: make(chan *eventBusTypes.Event, 100),
	}
	eb.Subscribe(consumer)
	defer eb.Unsubscribe(consumer)

	for {
		select {
		case <-ctx.Done():
			r.logger.Sugar().Infow("Stopping notification recorder")
			return
		case event := <-consumer.Channel:
			if err := r.Record(event); err != nil {
				r.logger.Sugar().Errorw("Failed to record event",
					zap.String("eventName", event.Name.String()),
					zap.Error(err),
				)
			}
		}
	}
}

// Record persists a single event. Unknown events are ignored.
func (r *Recorder) Record(event *eventBusTypes.Event) error {
	switch event.Name {
	case eventBusTypes.Event_NotificationEmitted:
		data, ok := event.Data.(*eventBusTypes.NotificationData)
		if !ok {
			return errors.Errorf("unexpected data %T for %s", event.Data, event.Name)
		}
		_, err := r.store.InsertNotification(data)
		return err
	case eventBusTypes.Event_SubmissionCompleted:
		data, ok := event.Data.(*eventBusTypes.SubmissionData)
		if !ok {
			return errors.Errorf("unexpected data %T for %s", event.Data, event.Name)
		}
		_, err := r.store.InsertSubmission(data)
		return err
	}
	return nil
}
