package tracker

import (
	"time"

	"pricewatch/internal/coin"
)

type EventKind string

const (
	EventListChanged   EventKind = "list-changed"
	EventPricesUpdated EventKind = "prices-updated"
)

// Event is a change notification carrying the list as it was when sent.
type Event struct {
	Kind  EventKind
	Coins []coin.WatchedCoin
	At    time.Time
}

const defaultEventBuffer = 16

// Subscribe returns a channel of change events and a func that ends the
// subscription and closes the channel. A slow reader loses its oldest events,
// never the latest.
func (t *Tracker) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	ch := make(chan Event, buffer)

	t.subsMu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = ch
	t.subsMu.Unlock()

	cancel := func() {
		t.subsMu.Lock()
		defer t.subsMu.Unlock()
		if c, ok := t.subs[id]; ok {
			delete(t.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (t *Tracker) publish(kind EventKind) {
	snapshot := t.Coins()
	at := t.now()

	t.subsMu.Lock()
	defer t.subsMu.Unlock()
	for _, ch := range t.subs {
		ev := Event{Kind: kind, Coins: coin.CloneAll(snapshot), At: at}
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}
