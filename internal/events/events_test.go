package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishToSubscribers(t *testing.T) {
	bus := NewEventBus()

	var got []Event
	bus.Subscribe(SessionExpired, func(e Event) error {
		got = append(got, e)
		return nil
	})
	bus.Subscribe(BookingCreated, func(e Event) error {
		t.Fatal("wrong subscriber called")
		return nil
	})

	bus.Publish(Event{Type: SessionExpired, SessionID: "s1"})
	bus.Publish(Event{Type: SessionExpired, SessionID: "s2"})

	require.Len(t, got, 2)
	assert.Equal(t, "s1", got[0].SessionID)
	assert.Less(t, got[0].ID, got[1].ID)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestEventBus_PublishJSON(t *testing.T) {
	bus := NewEventBus()

	type booked struct {
		ID int64 `json:"id"`
	}
	var payload booked
	bus.Subscribe(BookingCreated, func(e Event) error {
		return e.Decode(&payload)
	})

	require.NoError(t, bus.PublishJSON(BookingCreated, "s1", booked{ID: 42}))
	assert.Equal(t, int64(42), payload.ID)
}

func TestEventBus_OnError(t *testing.T) {
	bus := NewEventBus()
	boom := errors.New("boom")

	var reported error
	bus.OnError(func(_ Event, err error) { reported = err })
	bus.Subscribe(LoggedOut, func(Event) error { return boom })

	bus.Publish(Event{Type: LoggedOut})
	assert.ErrorIs(t, reported, boom)
}
