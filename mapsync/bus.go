// Package mapsync keeps the map and the facility table in step. Neither view
// references the other; both react to events on a shared Bus.
package mapsync

import (
	"sync"

	"github.com/ecobuddy/locator/status"
)

// Topic names an event stream.
type Topic string

const (
	TopicPinSelected    Topic = "pin.selected"
	TopicRowSelected    Topic = "row.selected"
	TopicHighlighted    Topic = "facility.highlighted"
	TopicCommentUpdated Topic = "facility.comment_updated"
)

// Event is delivered to subscribers. Source is set on highlight events to the
// selection topic that caused them.
type Event struct {
	Topic      Topic
	FacilityID int64
	Source     Topic
	Comment    *status.Comment
}

// Handler consumes an event.
type Handler func(Event)

type subscription struct {
	id int
	fn Handler
}

// Bus is a synchronous in-process publish/subscribe hub. Handlers run on the
// publishing goroutine in subscription order.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[Topic][]subscription
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]subscription)}
}

// Subscribe registers h for topic and returns a function that removes it.
func (b *Bus) Subscribe(topic Topic, h Handler) func() {
	b.mu.Lock()
	b.next++
	id := b.next
	b.subs[topic] = append(b.subs[topic], subscription{id: id, fn: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			subs := b.subs[topic]
			for i, s := range subs {
				if s.id == id {
					b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers e to every current subscriber of e.Topic.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs[e.Topic]))
	copy(subs, b.subs[e.Topic])
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(e)
	}
}
