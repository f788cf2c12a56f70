package eventhandler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/student-insight-hub/internal/domain/shared"
)

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeNotifier) Notify(_ context.Context, alertType, _ string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, alertType)
	return f.err
}

func (f *fakeNotifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testConfig() AlertRaisedConfig {
	return AlertRaisedConfig{
		CooldownPeriod: 50 * time.Millisecond,
		NotifyTimeout:  time.Second,
	}
}

func TestOnAlertRaised_Notifies(t *testing.T) {
	notifier := &fakeNotifier{}
	h := NewOnAlertRaisedHandler(notifier, nil, testConfig())

	event := shared.NewAlertRaisedEvent("alert-high-risk", "high_risk", "5 students are at high risk", 5)
	require.NoError(t, h.Handle(event))

	require.Equal(t, 1, notifier.callCount())
	assert.Equal(t, "high_risk", notifier.calls[0])
}

func TestOnAlertRaised_CooldownSuppressesDuplicates(t *testing.T) {
	notifier := &fakeNotifier{}
	h := NewOnAlertRaisedHandler(notifier, nil, testConfig())

	event := shared.NewAlertRaisedEvent("alert-inactive", "inactive", "msg", 2)
	require.NoError(t, h.Handle(event))
	require.NoError(t, h.Handle(event))
	require.NoError(t, h.Handle(event))

	assert.Equal(t, 1, notifier.callCount())
}

func TestOnAlertRaised_CooldownIsPerAlertType(t *testing.T) {
	notifier := &fakeNotifier{}
	h := NewOnAlertRaisedHandler(notifier, nil, testConfig())

	require.NoError(t, h.Handle(shared.NewAlertRaisedEvent("a1", "high_risk", "msg", 1)))
	require.NoError(t, h.Handle(shared.NewAlertRaisedEvent("a2", "inactive", "msg", 1)))

	assert.Equal(t, 2, notifier.callCount())
	assert.ElementsMatch(t, []string{"high_risk", "inactive"}, notifier.calls)
}

func TestOnAlertRaised_NotifiesAgainAfterCooldown(t *testing.T) {
	notifier := &fakeNotifier{}
	h := NewOnAlertRaisedHandler(notifier, nil, testConfig())

	event := shared.NewAlertRaisedEvent("alert-inactive", "inactive", "msg", 2)
	require.NoError(t, h.Handle(event))

	time.Sleep(60 * time.Millisecond)
	require.NoError(t, h.Handle(event))

	assert.Equal(t, 2, notifier.callCount())
}

func TestOnAlertRaised_DeliveryFailureIsNonFatal(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("webhook down")}
	h := NewOnAlertRaisedHandler(notifier, nil, testConfig())

	event := shared.NewAlertRaisedEvent("a", "high_risk", "msg", 1)
	assert.NoError(t, h.Handle(event))

	// A failed delivery does not start the cooldown: the next scan
	// retries the notification.
	require.NoError(t, h.Handle(event))
	assert.Equal(t, 2, notifier.callCount())
}

func TestOnAlertRaised_NilNotifierLogsOnly(t *testing.T) {
	h := NewOnAlertRaisedHandler(nil, nil, DefaultAlertRaisedConfig())
	assert.NoError(t, h.Handle(shared.NewAlertRaisedEvent("a", "high_risk", "msg", 1)))
}

func TestOnAlertRaised_IgnoresOtherEvents(t *testing.T) {
	notifier := &fakeNotifier{}
	h := NewOnAlertRaisedHandler(notifier, nil, testConfig())

	assert.NoError(t, h.Handle(shared.NewPopulationRescoredEvent(10)))
	assert.Equal(t, 0, notifier.callCount())
}

func TestOnAlertRaised_EventType(t *testing.T) {
	h := NewOnAlertRaisedHandler(nil, nil, DefaultAlertRaisedConfig())
	assert.Equal(t, shared.EventAlertRaised, h.EventType())
}
