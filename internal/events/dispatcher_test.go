package events

import (
	"context"
	"errors"
	"testing"
)

func TestPublishInvokesAllSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var calls []string
	dispatcher.Subscribe(EventRecordCreated, func(ctx context.Context, event Event) error {
		calls = append(calls, "first")
		return nil
	})
	dispatcher.Subscribe(EventRecordCreated, func(ctx context.Context, event Event) error {
		calls = append(calls, "second")
		return nil
	})
	dispatcher.Subscribe(EventRecordDispatched, func(ctx context.Context, event Event) error {
		calls = append(calls, "other-type")
		return nil
	})

	if err := dispatcher.Publish(context.Background(), Event{Type: EventRecordCreated}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("calls = %v", calls)
	}
}

func TestPublishContinuesPastHandlerErrors(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var reached bool
	dispatcher.Subscribe(EventAnalysisFailed, func(ctx context.Context, event Event) error {
		return errors.New("handler broke")
	})
	dispatcher.Subscribe(EventAnalysisFailed, func(ctx context.Context, event Event) error {
		reached = true
		return nil
	})

	if err := dispatcher.Publish(context.Background(), Event{Type: EventAnalysisFailed}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !reached {
		t.Fatal("later handler skipped after earlier error")
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()
	if err := dispatcher.Publish(context.Background(), Event{Type: EventDraftEdited}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}
