package broker_test

import (
	"context"
	"testing"

	"code.pismoprotocol.io/pismo/broker"
	"code.pismoprotocol.io/pismo/events"
	"code.pismoprotocol.io/pismo/logging"
	"code.pismoprotocol.io/pismo/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSub struct {
	types []events.Type
	got   []events.Event
}

func (s *stubSub) Push(evts ...events.Event) { s.got = append(s.got, evts...) }

func (s *stubSub) Types() []events.Type { return s.types }

func newBroker(t *testing.T) *broker.Broker {
	t.Helper()
	return broker.New(logging.NewTestLogger(), broker.NewDefaultConfig())
}

func accountEvent() events.Event {
	return events.NewAccountCreatedEvent(context.Background(), &types.Account{
		ID:    "acc-1",
		Owner: "0xowner",
	})
}

func tokenEvent() events.Event {
	return events.NewTokenRegisteredEvent(context.Background(), &types.TokenIdentifier{
		TokenInfo: "0x2::sui::SUI",
	})
}

func TestSubscription(t *testing.T) {
	t.Run("A typed subscriber only gets its types", testTypedSubscriber)
	t.Run("An all subscriber gets everything once", testAllSubscriber)
	t.Run("An unsubscribed subscriber gets nothing", testUnsubscribe)
}

func testTypedSubscriber(t *testing.T) {
	b := newBroker(t)
	sub := &stubSub{types: []events.Type{events.NewAccountEvent}}
	b.Subscribe(sub)

	b.Send(accountEvent())
	b.Send(tokenEvent())

	require.Len(t, sub.got, 1)
	assert.Equal(t, events.NewAccountEvent, sub.got[0].Type())
}

func testAllSubscriber(t *testing.T) {
	b := newBroker(t)
	// registered for All and a concrete type, must still get one copy
	sub := &stubSub{types: []events.Type{events.All, events.NewAccountEvent}}
	b.Subscribe(sub)

	b.SendBatch([]events.Event{accountEvent(), tokenEvent()})

	require.Len(t, sub.got, 2)
	assert.Equal(t, events.NewAccountEvent, sub.got[0].Type())
	assert.Equal(t, events.TokenRegisteredEvent, sub.got[1].Type())
}

func testUnsubscribe(t *testing.T) {
	b := newBroker(t)
	sub := &stubSub{types: []events.Type{events.All}}
	k := b.Subscribe(sub)
	b.Unsubscribe(k)

	b.Send(accountEvent())
	assert.Empty(t, sub.got)
}
