package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"mfg_portal_backend/platform/logger"
)

type testEvent struct {
	BaseEvent
}

func (testEvent) EventName() string { return "test.event" }

func TestPublishSurvivesCallerCancellation(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	done := make(chan error, 1)
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, _ Event) error {
		// Simulate slow delivery (an SMTP dial) past the caller's lifetime.
		select {
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
		}
		done <- ctx.Err()
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, testEvent{BaseEvent: NewBaseEvent()})
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("handler context cancelled after publisher returned: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("handler did not complete")
	}
}

func TestPublishSyncJoinsHandlerErrors(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	errFirst := errors.New("first failed")
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		return errFirst
	}))
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		return nil
	}))

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	if !errors.Is(err, errFirst) {
		t.Fatalf("PublishSync error = %v, want to wrap %v", err, errFirst)
	}
}
