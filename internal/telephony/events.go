package telephony

import (
	"sync"
	"time"
)

const (
	subscriberBuffer = 16
	pendingTTL       = 2 * time.Minute
)

// Bus routes status callbacks to the session waiting on that call. Events
// that arrive before anyone subscribes are held briefly, since the carrier
// may report "initiated" before PlaceCall has returned.
type Bus struct {
	mu      sync.Mutex
	subs    map[string]chan Event
	pending map[string][]Event
	now     func() time.Time
}

func NewBus() *Bus {
	return &Bus{
		subs:    make(map[string]chan Event),
		pending: make(map[string][]Event),
		now:     time.Now,
	}
}

// Subscribe returns the event channel for sid, replaying held events.
func (b *Bus) Subscribe(sid string) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[sid]; ok {
		return ch
	}
	ch := make(chan Event, subscriberBuffer)
	for _, ev := range b.pending[sid] {
		select {
		case ch <- ev:
		default:
		}
	}
	delete(b.pending, sid)
	b.subs[sid] = ch
	return ch
}

func (b *Bus) Unsubscribe(sid string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sid)
	delete(b.pending, sid)
}

// Publish delivers ev without blocking. It reports whether a subscriber
// received it.
func (b *Bus) Publish(ev Event) bool {
	if ev.At.IsZero() {
		ev.At = b.now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subs[ev.CallSID]
	if !ok {
		b.prune()
		b.pending[ev.CallSID] = append(b.pending[ev.CallSID], ev)
		return false
	}
	select {
	case ch <- ev:
		return true
	default:
		return false
	}
}

func (b *Bus) prune() {
	cutoff := b.now().Add(-pendingTTL)
	for sid, evs := range b.pending {
		if len(evs) == 0 || evs[len(evs)-1].At.Before(cutoff) {
			delete(b.pending, sid)
		}
	}
}
