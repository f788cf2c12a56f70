package messaging

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/student-insight-hub/internal/domain/shared"
)

func newTestDispatcher(bus shared.EventBus) *Dispatcher {
	return NewDispatcher(DispatcherConfig{
		Bus: bus,
		Retry: RetryConfig{
			MaxAttempts:       3,
			InitialBackoff:    time.Millisecond,
			BackoffMultiplier: 1.0,
		},
		DeadLetterLimit: 5,
	})
}

func TestDispatcher_Register(t *testing.T) {
	bus := syncBus()
	defer func() { _ = bus.Close() }()
	d := newTestDispatcher(bus)

	handled := 0
	err := d.Register(shared.EventAlertRaised, "test_handler", func(shared.Event) error {
		handled++
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(shared.NewAlertRaisedEvent("a", "high_risk", "msg", 1)))
	assert.Equal(t, 1, handled)
	assert.Equal(t, 0, d.DeadLetterQueue().Size())
}

func TestDispatcher_RetriesUntilSuccess(t *testing.T) {
	bus := syncBus()
	defer func() { _ = bus.Close() }()
	d := newTestDispatcher(bus)

	attempts := 0
	require.NoError(t, d.Register(shared.EventAlertRaised, "flaky", func(shared.Event) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewAlertRaisedEvent("a", "inactive", "msg", 1)))

	assert.Equal(t, 3, attempts)
	assert.Equal(t, 0, d.DeadLetterQueue().Size())
}

func TestDispatcher_ExhaustedRetriesGoToDeadLetter(t *testing.T) {
	bus := syncBus()
	defer func() { _ = bus.Close() }()
	d := newTestDispatcher(bus)

	attempts := 0
	require.NoError(t, d.Register(shared.EventAlertRaised, "broken", func(shared.Event) error {
		attempts++
		return errors.New("permanent")
	}))

	require.NoError(t, bus.Publish(shared.NewAlertRaisedEvent("a", "engagement_drop", "msg", 2)))

	assert.Equal(t, 3, attempts)

	entries := d.DeadLetterQueue().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "broken", entries[0].Handler)
	assert.Equal(t, "permanent", entries[0].Error)
	assert.Equal(t, 3, entries[0].Attempts)
	assert.Equal(t, shared.EventAlertRaised, entries[0].Event.EventType())
}

func TestDispatcher_RecoveryMiddleware(t *testing.T) {
	bus := syncBus()
	defer func() { _ = bus.Close() }()
	d := newTestDispatcher(bus)
	d.Use(RecoveryMiddleware(slog.Default()))

	require.NoError(t, d.Register(shared.EventAlertRaised, "panicky", func(shared.Event) error {
		panic("kaboom")
	}))

	// The panic becomes an error, exhausts retries and lands in the DLQ
	// without crashing the publisher.
	require.NoError(t, bus.Publish(shared.NewAlertRaisedEvent("a", "high_risk", "msg", 1)))

	entries := d.DeadLetterQueue().Entries()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Error, "kaboom")
}

func TestDeadLetterQueue_EvictsOldestWhenFull(t *testing.T) {
	q := NewDeadLetterQueue(2)

	q.Add(DeadLetterEntry{Handler: "first"})
	q.Add(DeadLetterEntry{Handler: "second"})
	q.Add(DeadLetterEntry{Handler: "third"})

	entries := q.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].Handler)
	assert.Equal(t, "third", entries[1].Handler)
}

func TestDeadLetterQueue_Clear(t *testing.T) {
	q := NewDeadLetterQueue(5)
	q.Add(DeadLetterEntry{Handler: "h"})
	require.Equal(t, 1, q.Size())

	q.Clear()
	assert.Equal(t, 0, q.Size())
}
