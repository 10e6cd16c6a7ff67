package bus

import (
	"errors"
	"testing"
)

func TestPublishDeliveryOrder(t *testing.T) {
	b := New()
	var order []string

	record := func(label string) Handler {
		return func(Event) error {
			order = append(order, label)
			return nil
		}
	}

	// Register out of delivery order on purpose.
	b.Subscribe("threshold.*", record("prefix"))
	b.Subscribe("*", record("wildcard"))
	b.Subscribe("threshold.detected", record("exact"))

	_, fails := b.Publish("threshold.detected", nil, "test")
	if len(fails) != 0 {
		t.Fatalf("expected no failures, got %d", len(fails))
	}

	want := []string{"exact", "wildcard", "prefix"}
	if len(order) != len(want) {
		t.Fatalf("expected %d deliveries, got %v", len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("delivery %d: expected %s, got %s", i, want[i], order[i])
		}
	}
}

func TestPublishRegistrationOrderWithinGroup(t *testing.T) {
	b := New()
	var order []int

	for i := 1; i <= 3; i++ {
		i := i
		b.Subscribe("topic", func(Event) error {
			order = append(order, i)
			return nil
		})
	}

	b.Publish("topic", nil, "test")

	for i, got := range order {
		if got != i+1 {
			t.Fatalf("position %d: expected handler %d, got %d", i, i+1, got)
		}
	}
}

func TestPublishReturnsHandlerFailures(t *testing.T) {
	b := New()
	boom := errors.New("boom")

	b.Subscribe("topic", func(Event) error { return boom })
	called := false
	b.Subscribe("topic", func(Event) error {
		called = true
		return nil
	})

	_, fails := b.Publish("topic", nil, "test")

	if len(fails) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(fails))
	}
	if !errors.Is(fails[0].Err, boom) {
		t.Fatalf("expected boom, got %v", fails[0].Err)
	}
	if !called {
		t.Fatal("failure in an earlier handler must not stop later handlers")
	}
}

func TestPublishRecoversPanics(t *testing.T) {
	b := New()
	b.Subscribe("topic", func(Event) error { panic("subscriber bug") })

	_, fails := b.Publish("topic", nil, "test")

	if len(fails) != 1 {
		t.Fatalf("expected 1 failure from panic, got %d", len(fails))
	}
}

func TestPrefixMatchesOnlyOwnSegment(t *testing.T) {
	b := New()
	hits := 0
	b.Subscribe("simulation.*", func(Event) error {
		hits++
		return nil
	})

	b.Publish("simulation.complete", nil, "test")
	b.Publish("deliberation.complete", nil, "test")

	if hits != 1 {
		t.Fatalf("expected 1 prefix delivery, got %d", hits)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	hits := 0
	token := b.Subscribe("topic", func(Event) error {
		hits++
		return nil
	})

	b.Publish("topic", nil, "test")
	if !b.Unsubscribe("topic", token) {
		t.Fatal("expected unsubscribe to find the handler")
	}
	b.Publish("topic", nil, "test")

	if hits != 1 {
		t.Fatalf("expected 1 delivery after unsubscribe, got %d", hits)
	}
	if b.Unsubscribe("topic", token) {
		t.Fatal("second unsubscribe should report not found")
	}
}

func TestEventLogAndIDs(t *testing.T) {
	b := New()
	e1, _ := b.Publish("a.one", "payload", "src")
	e2, _ := b.Publish("a.two", "payload", "src")

	if len(e1.EventID) != 12 || len(e2.EventID) != 12 {
		t.Fatalf("expected 12-char event ids, got %q and %q", e1.EventID, e2.EventID)
	}

	logged := b.EventLog()
	if len(logged) != 2 {
		t.Fatalf("expected 2 logged events, got %d", len(logged))
	}
	if logged[0].Topic != "a.one" || logged[1].Topic != "a.two" {
		t.Fatalf("log out of order: %s, %s", logged[0].Topic, logged[1].Topic)
	}

	b.Clear()
	if len(b.EventLog()) != 0 {
		t.Fatal("expected empty log after Clear")
	}
}
