package events

import (
	"context"
	"testing"
)

func TestPublishInvokesHandlersInOrder(t *testing.T) {
	bus := NewBus()

	var order []string
	bus.Subscribe(OrderStatusChanged, func(ctx context.Context, evt Event) {
		order = append(order, "first")
	})
	bus.Subscribe(OrderStatusChanged, func(ctx context.Context, evt Event) {
		order = append(order, "second")
	})

	bus.Publish(context.Background(), Event{Type: OrderStatusChanged, OrderID: 1, Status: "completed"})

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("unexpected handler order: %v", order)
	}
}

func TestPublishOnlyMatchingType(t *testing.T) {
	bus := NewBus()

	var manual, status int
	bus.Subscribe(ManualSendRequested, func(ctx context.Context, evt Event) { manual++ })
	bus.Subscribe(OrderStatusChanged, func(ctx context.Context, evt Event) { status++ })

	bus.Publish(context.Background(), Event{Type: ManualSendRequested, OrderID: 7})

	if manual != 1 {
		t.Fatalf("expected one manual invocation, got %d", manual)
	}
	if status != 0 {
		t.Fatalf("expected zero status invocations, got %d", status)
	}
}

func TestPublishWithoutHandlersIsNoop(t *testing.T) {
	bus := NewBus()
	bus.Publish(context.Background(), Event{Type: "unknown.event"})
}

func TestEventCarriesPayload(t *testing.T) {
	bus := NewBus()

	var got Event
	bus.Subscribe(OrderStatusChanged, func(ctx context.Context, evt Event) { got = evt })

	bus.Publish(context.Background(), Event{Type: OrderStatusChanged, OrderID: 42, Status: "completed"})

	if got.OrderID != 42 || got.Status != "completed" {
		t.Fatalf("unexpected event payload: %+v", got)
	}
}
