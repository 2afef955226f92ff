package signal

import "testing"

func TestLatencyDelaysDelivery(t *testing.T) {
	ch, err := New[int](3, 4)
	if err != nil {
		t.Fatal(err)
	}
	ch.Send(10, 42)

	if got := ch.Recv(10); len(got) != 0 {
		t.Fatalf("expected no delivery at send cycle, got %v", got)
	}
	if got := ch.Recv(12); len(got) != 0 {
		t.Fatalf("expected no delivery before latency elapses, got %v", got)
	}
	got := ch.Recv(13)
	if len(got) != 1 || got[0] != 42 {
		t.Fatalf("expected [42] at cycle 13, got %v", got)
	}
}

func TestBandwidthCapsPerCycleDelivery(t *testing.T) {
	ch, err := New[int](0, 2)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		ch.Send(0, i)
	}
	first := ch.Recv(0)
	if len(first) != 2 {
		t.Fatalf("expected bandwidth-capped delivery of 2, got %d", len(first))
	}
	// Remaining three stay enqueued at the same arrival cycle for a later Recv.
	second := ch.Recv(0)
	if len(second) != 2 {
		t.Fatalf("expected 2 more on next Recv at same cycle, got %d", len(second))
	}
	third := ch.Recv(0)
	if len(third) != 1 {
		t.Fatalf("expected final 1 message, got %d", len(third))
	}
}

func TestFIFOOrdering(t *testing.T) {
	ch, _ := New[string](1, 10)
	ch.Send(0, "a")
	ch.Send(0, "b")
	ch.Send(0, "c")
	got := ch.Recv(1)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("FIFO order violated: got %v, want %v", got, want)
		}
	}
}

func TestEmptyAfterDrain(t *testing.T) {
	ch, _ := New[int](2, 1)
	ch.Send(0, 1)
	if ch.Empty() {
		t.Fatal("expected non-empty while message in flight")
	}
	ch.Recv(2)
	if !ch.Empty() {
		t.Fatal("expected empty after the in-flight message was consumed")
	}
}

func TestIllegalBandwidthRejected(t *testing.T) {
	if _, err := New[int](1, 0); err == nil {
		t.Fatal("expected error for zero bandwidth")
	}
}

func TestAdvertiseCapacity(t *testing.T) {
	ch, _ := New[int](1, 1)
	ch.AdvertiseCapacity(4)
	if got := ch.RequestedCapacity(); got != 4 {
		t.Fatalf("RequestedCapacity() = %d, want 4", got)
	}
}
