package service

import (
	"sync"

	"github.com/bnema/reencoder/internal/domain"
)

const (
	EventScanStarted  = "scan_started"
	EventScanFinished = "scan_finished"
	EventClaimed      = "claimed"
	EventInstalled    = "installed"
)

// Event carries the dispatch status right after the change named by Type.
type Event struct {
	Type   string        `json:"type"`
	Status domain.Status `json:"status"`
}

type EventPublisher interface {
	Publish(event Event)
}

// EventBus fans events out to every subscriber.
type EventBus struct {
	subscribers map[chan Event]struct{}
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[chan Event]struct{}),
	}
}

func (eb *EventBus) Subscribe() chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan Event, 16)
	eb.subscribers[ch] = struct{}{}
	return ch
}

func (eb *EventBus) Unsubscribe(ch chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if _, ok := eb.subscribers[ch]; ok {
		delete(eb.subscribers, ch)
		close(ch)
	}
}

func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Drop event if subscriber is slow
		}
	}
}

func (eb *EventBus) SubscriberCount() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers)
}
