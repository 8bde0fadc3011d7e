// Package notify fans ledger-change signals out to connected viewers. It is
// a change signal, not a data channel: messages carry only an event name and
// a reason, and viewers re-fetch the list endpoints, so a dropped message is
// always recoverable.
package notify

import (
	"sync"

	"go.uber.org/zap"
)

// Event names pushed over the stream.
const (
	EventBancasChanged     = "bancas-changed"
	EventPagamentosChanged = "pagamentos-changed"
)

// Message is one broadcast unit.
type Message struct {
	Event  string `json:"event"`
	Reason string `json:"reason"`
}

// Broadcaster keeps a registry of subscriber channels. Delivery is
// best-effort and non-blocking: a full channel drops the message for that
// subscriber only. Cleanup is the transport's job: the HTTP handler calls
// Unsubscribe when the connection's context ends.
type Broadcaster struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Message
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Message)}
}

// Subscribe registers a new viewer and returns its id and receive channel.
func (b *Broadcaster) Subscribe() (int, <-chan Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan Message, 8)
	b.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a viewer and closes its channel.
func (b *Broadcaster) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Broadcast sends event+reason to every subscriber without blocking the
// caller. A viewer that cannot keep up misses the signal and re-syncs on its
// next fetch.
func (b *Broadcaster) Broadcast(event, reason string) {
	msg := Message{Event: event, Reason: reason}
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- msg:
		default:
			zap.L().Debug("dropping change notification for slow subscriber",
				zap.Int("subscriber", id), zap.String("event", event))
		}
	}
}

// Count reports the current subscriber total.
func (b *Broadcaster) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
