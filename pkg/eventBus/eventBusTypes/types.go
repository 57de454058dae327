// Package eventBusTypes defines the events and consumers carried by the
// eventBus package.
package eventBusTypes

import (
	"context"
	"sync"
)

type EventName string

func (en *EventName) String() string {
	return string(*en)
}

var (
	// Event_NotificationEmitted carries a *NotificationData
	Event_NotificationEmitted EventName = "notification_emitted"
	// Event_SubmissionCompleted carries a *SubmissionData
	Event_SubmissionCompleted EventName = "submission_completed"
)

type Event struct {
	Name EventName
	Data any
}

type ConsumerId string

// Consumer receives events on Channel until its Context is done.
type Consumer struct {
	Id      ConsumerId
	Context context.Context
	Channel chan *Event
}

// ConsumerList is a mutex guarded list of consumers.
type ConsumerList struct {
	mu        sync.Mutex
	consumers []*Consumer
}

func NewConsumerList() *ConsumerList {
	return &ConsumerList{
		consumers: make([]*Consumer, 0),
	}
}

func (cl *ConsumerList) Add(consumer *Consumer) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.consumers = append(cl.consumers, consumer)
}

// Remove drops the consumer with the same Id.
func (cl *ConsumerList) Remove(consumer *Consumer) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	for i, c := range cl.consumers {
		if c.Id == consumer.Id {
			cl.consumers = append(cl.consumers[:i], cl.consumers[i+1:]...)
			break
		}
	}
}

// GetAll returns a snapshot of the current consumers.
func (cl *ConsumerList) GetAll() []*Consumer {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	out := make([]*Consumer, len(cl.consumers))
	copy(out, cl.consumers)
	return out
}

type IEventBus interface {
	Subscribe(consumer *Consumer)
	Unsubscribe(consumer *Consumer)
	Publish(event *Event)
}

// NotificationData is a payload emitted by a watcher.
type NotificationData struct {
	// Trigger names the definition that produced the payload
	Trigger string
	ChainId uint64
	// Kind is either "event" or "transaction"
	Kind    string
	Payload any
}

// SubmissionData is published after a transaction builder run.
type SubmissionData struct {
	Key       string
	SessionId string
	ChainId   uint64
	Function  string
	Payload   any
	Error     error
}
