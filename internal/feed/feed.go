// Package feed is the in-process change feed for message inserts. The message
// service publishes every stored message keyed by its receiver; a viewer's
// session subscribes to receive them as they land.
package feed

import (
	"sync"

	"github.com/StephanieCaroll/Sustentech-sub000/internal/domain"
)

const subscriptionBuffer = 64

// Feed fans message-insert events out to per-receiver subscriptions.
type Feed struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

func New() *Feed {
	return &Feed{
		subs: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers interest in messages addressed to the given receiver.
// The caller owns the returned subscription and must Close it when done.
func (f *Feed) Subscribe(receiverID string) *Subscription {
	s := &Subscription{
		feed:       f,
		receiverID: receiverID,
		ch:         make(chan *domain.Message, subscriptionBuffer),
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs[receiverID] == nil {
		f.subs[receiverID] = make(map[*Subscription]struct{})
	}
	f.subs[receiverID][s] = struct{}{}
	return s
}

// Publish delivers the message to every subscription of its receiver.
// Delivery is best-effort: a subscriber with a full buffer misses the event
// and recovers state on its next inbox reload.
func (f *Feed) Publish(m *domain.Message) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for s := range f.subs[m.ReceiverID] {
		select {
		case s.ch <- m:
		default:
		}
	}
}

func (f *Feed) unsubscribe(s *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if subs, ok := f.subs[s.receiverID]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(f.subs, s.receiverID)
		}
	}
}

// Subscription is a handle on the feed for a single receiver.
type Subscription struct {
	feed       *Feed
	receiverID string
	ch         chan *domain.Message
	once       sync.Once
}

// Events yields incoming messages until the subscription is closed.
func (s *Subscription) Events() <-chan *domain.Message {
	return s.ch
}

// Close detaches from the feed and closes the event channel.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.feed.unsubscribe(s)
		close(s.ch)
	})
}
