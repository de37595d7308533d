package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentineldesk/responder/internal/domain"
)

// mockSender records delivered events and can be made to fail.
type mockSender struct {
	name string
	fail bool

	mu       sync.Mutex
	received []domain.NotificationEvent
}

func (m *mockSender) Name() string { return m.name }

func (m *mockSender) Send(_ context.Context, ev domain.NotificationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("pager api unavailable")
	}
	m.received = append(m.received, ev)
	return nil
}

func (m *mockSender) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.received)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestWorkerDeliversEvents(t *testing.T) {
	events := make(chan domain.NotificationEvent, 4)
	sender := &mockSender{name: "pager"}
	w := NewWorker(Config{}, events, sender)

	w.Start(context.Background())
	defer w.Stop()

	events <- domain.NotificationEvent{IncidentID: "IR-1", Event: domain.NotifyIncidentCreated}
	events <- domain.NotificationEvent{IncidentID: "IR-1", Event: domain.NotifyStatusChanged}

	waitFor(t, func() bool { return sender.count() == 2 })
	assert.Equal(t, domain.NotifyIncidentCreated, sender.received[0].Event)
	assert.Equal(t, domain.NotifyStatusChanged, sender.received[1].Event)
}

func TestWorkerFansOutToAllSenders(t *testing.T) {
	events := make(chan domain.NotificationEvent, 4)
	pager := &mockSender{name: "pager"}
	chat := &mockSender{name: "chat"}
	w := NewWorker(Config{}, events, pager, chat)

	w.Start(context.Background())
	defer w.Stop()

	events <- domain.NotificationEvent{IncidentID: "IR-1", Event: domain.NotifyEscalationNeeded}

	waitFor(t, func() bool { return pager.count() == 1 && chat.count() == 1 })
}

func TestWorkerContinuesAfterSenderFailure(t *testing.T) {
	events := make(chan domain.NotificationEvent, 4)
	broken := &mockSender{name: "broken", fail: true}
	working := &mockSender{name: "working"}
	w := NewWorker(Config{}, events, broken, working)

	w.Start(context.Background())
	defer w.Stop()

	events <- domain.NotificationEvent{IncidentID: "IR-1", Event: domain.NotifyIncidentCreated}
	events <- domain.NotificationEvent{IncidentID: "IR-2", Event: domain.NotifyIncidentCreated}

	// The failing sender never stops delivery to the healthy one.
	waitFor(t, func() bool { return working.count() == 2 })
	assert.Equal(t, 0, broken.count())
}

func TestWorkerStopsOnChannelClose(t *testing.T) {
	events := make(chan domain.NotificationEvent, 4)
	sender := &mockSender{name: "pager"}
	w := NewWorker(Config{}, events, sender)

	w.Start(context.Background())

	events <- domain.NotificationEvent{IncidentID: "IR-1"}
	close(events)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not exit after channel close")
	}
	require.Equal(t, 1, sender.count())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 60, cfg.RatePerMinute)
	assert.Equal(t, 10*time.Second, cfg.SendTimeout)
}
