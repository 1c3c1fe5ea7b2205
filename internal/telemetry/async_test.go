package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"medconsult/backend/internal/telemetry/domain"
)

// recordingEmitter implements EventEmitter for tests.
type recordingEmitter struct {
	mu      sync.Mutex
	events  []*domain.AuthEvent
	emitErr error
	done    chan struct{}
}

func newRecordingEmitter(expected int) *recordingEmitter {
	return &recordingEmitter{done: make(chan struct{}, expected)}
}

func (m *recordingEmitter) Emit(ctx context.Context, event *domain.AuthEvent) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	m.done <- struct{}{}
	return m.emitErr
}

func (m *recordingEmitter) wait(t *testing.T, n int) {
	t.Helper()
	for range n {
		select {
		case <-m.done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for emit")
		}
	}
}

func (m *recordingEmitter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func TestEmitAsync_NilInputs(t *testing.T) {
	// Should not panic
	EmitAsync(nil, context.Background(), &domain.AuthEvent{Type: domain.EventLoginSucceeded})
	e := newRecordingEmitter(1)
	EmitAsync(e, context.Background(), nil)
	time.Sleep(10 * time.Millisecond)
	if e.count() != 0 {
		t.Errorf("nil event should not be emitted, got %d", e.count())
	}
}

func TestEmitAsync_SurvivesCancelledRequest(t *testing.T) {
	e := newRecordingEmitter(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	EmitAsync(e, ctx, &domain.AuthEvent{Type: domain.EventLoggedOut, UserID: "user-1"})
	e.wait(t, 1)

	if e.events[0].UserID != "user-1" {
		t.Errorf("user_id = %q, want user-1", e.events[0].UserID)
	}
}

func TestEmitAsync_ErrorIsSwallowed(t *testing.T) {
	e := newRecordingEmitter(1)
	e.emitErr = errors.New("broker down")
	EmitAsync(e, context.Background(), &domain.AuthEvent{Type: domain.EventLoginFailed})
	e.wait(t, 1)
}

func TestEmitAsync_Concurrent(t *testing.T) {
	e := newRecordingEmitter(10)
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			EmitAsync(e, context.Background(), &domain.AuthEvent{Type: domain.EventTokenRefreshed})
		}()
	}
	wg.Wait()
	e.wait(t, 10)
	if e.count() != 10 {
		t.Errorf("expected 10 events, got %d", e.count())
	}
}

func TestMultiEmitter(t *testing.T) {
	if NewMultiEmitter(nil, nil) != nil {
		t.Error("NewMultiEmitter with only nils should be nil")
	}
	a := newRecordingEmitter(1)
	b := newRecordingEmitter(1)
	b.emitErr = errors.New("b failed")
	c := newRecordingEmitter(1)
	m := NewMultiEmitter(a, nil, b, c)

	err := m.Emit(context.Background(), &domain.AuthEvent{Type: domain.EventUserRegistered})
	if err == nil {
		t.Error("MultiEmitter should surface sink errors")
	}
	if a.count() != 1 || b.count() != 1 || c.count() != 1 {
		t.Errorf("counts = %d %d %d, want all 1", a.count(), b.count(), c.count())
	}
}
