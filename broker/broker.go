package broker

import (
	"sync"

	"code.pismoprotocol.io/pismo/events"
	"code.pismoprotocol.io/pismo/logging"
)

// Subscriber receives events from the broker. A subscriber registered for
// events.All gets everything.
type Subscriber interface {
	Push(evts ...events.Event)
	Types() []events.Type
}

// Interface is the event broker as the engines see it: fire and forget, the
// engines never depend on a subscriber succeeding.
type Interface interface {
	Send(event events.Event)
	SendBatch(evts []events.Event)
}

// Broker fans engine events out to registered subscribers, in registration
// order. Delivery is synchronous and in-process, the external transport to
// the indexer sits behind a subscriber.
type Broker struct {
	log *logging.Logger

	mu     sync.Mutex
	lastID int
	subs   map[int]Subscriber
	// type -> subscriber keys registered for it, events.All means all
	tSubs map[events.Type][]int
}

func New(log *logging.Logger, cfg Config) *Broker {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())
	return &Broker{
		log:   log,
		subs:  map[int]Subscriber{},
		tSubs: map[events.Type][]int{},
	}
}

// Subscribe registers a subscriber for the event types it declares and
// returns the key to unsubscribe with.
func (b *Broker) Subscribe(s Subscriber) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastID++
	k := b.lastID
	b.subs[k] = s
	for _, t := range s.Types() {
		b.tSubs[t] = append(b.tSubs[t], k)
	}
	return k
}

// Unsubscribe removes a subscriber, unknown keys are ignored.
func (b *Broker) Unsubscribe(k int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, k)
	for t, keys := range b.tSubs {
		out := keys[:0]
		for _, sk := range keys {
			if sk != k {
				out = append(out, sk)
			}
		}
		b.tSubs[t] = out
	}
}

// Send delivers a single event.
func (b *Broker) Send(event events.Event) {
	b.SendBatch([]events.Event{event})
}

// SendBatch delivers a batch of events, preserving order.
func (b *Broker) SendBatch(evts []events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, evt := range evts {
		if b.log.IsDebug() {
			b.log.Debug("sending event",
				logging.String("type", evt.Type().String()),
				logging.String("trace-id", evt.TraceID()),
			)
		}
		seen := map[int]struct{}{}
		for _, k := range b.tSubs[events.All] {
			if sub, ok := b.subs[k]; ok {
				sub.Push(evt)
				seen[k] = struct{}{}
			}
		}
		for _, k := range b.tSubs[evt.Type()] {
			if _, dup := seen[k]; dup {
				continue
			}
			if sub, ok := b.subs[k]; ok {
				sub.Push(evt)
			}
		}
	}
}
