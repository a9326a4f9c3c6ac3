package events_test

import (
	"testing"
	"time"

	"github.com/horter-io/horter-go/internal/analog"
	"github.com/horter-io/horter-go/internal/events"
)

var testPin = analog.NewPin("horter-adc", 2, "ANALOG INPUT 2", analog.ModeAnalogInput)

func TestBusSubscribePublish(t *testing.T) {
	bus := events.NewBus()

	ch := bus.Subscribe("test1")

	bus.Publish(analog.ValueChangeEvent{Pin: testPin, Old: 1, New: 512})

	select {
	case got := <-ch:
		if got.Pin != testPin || got.New != 512 {
			t.Errorf("got %+v, want pin %v with new value 512", got, testPin)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for event")
	}
}

func TestBusAsListener(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe("listener")

	cache := analog.NewCache()
	cache.AddListener(bus, testPin)
	cache.Set(testPin, 42)

	select {
	case got := <-ch:
		if got.New != 42 {
			t.Errorf("got new value %v, want 42", got.New)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for event")
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe("test-unsub")

	bus.Unsubscribe("test-unsub")
	bus.Unsubscribe("test-unsub")

	// Channel should be closed
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to be closed after unsubscribe")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestBusResubscribeClosesOld(t *testing.T) {
	bus := events.NewBus()
	old := bus.Subscribe("dup")
	bus.Subscribe("dup")

	if _, ok := <-old; ok {
		t.Error("expected replaced channel to be closed")
	}
	if n := bus.SubscriberCount(); n != 1 {
		t.Errorf("expected 1 subscriber, got %d", n)
	}
}

func TestBusDropsEventsWhenFull(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe("slow-reader")

	// Publish many events without reading; must not block
	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			bus.Publish(analog.ValueChangeEvent{Pin: testPin, New: float64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Publish blocked for too long (should drop events)")
	}

	if n := len(ch); n != 8 {
		t.Errorf("expected buffered events to stop at 8, got %d", n)
	}
	bus.Unsubscribe("slow-reader")
}

func TestBusSubscriberCount(t *testing.T) {
	bus := events.NewBus()
	if n := bus.SubscriberCount(); n != 0 {
		t.Errorf("expected 0 subscribers, got %d", n)
	}
	bus.Subscribe("s1")
	bus.Subscribe("s2")
	if n := bus.SubscriberCount(); n != 2 {
		t.Errorf("expected 2 subscribers, got %d", n)
	}
	bus.Unsubscribe("s1")
	if n := bus.SubscriberCount(); n != 1 {
		t.Errorf("expected 1 subscriber, got %d", n)
	}
}
