package bus

import "testing"

func TestStateAccepts(t *testing.T) {
	cases := []struct {
		state State
		cmd   Command
		want  bool
	}{
		{None, ReadReq, false},
		{ReadAccept, ReadReq, true},
		{ReadAccept, WriteData, false},
		{WriteAccept, WriteData, true},
		{WriteAccept, PreloadData, true},
		{WriteAccept, ReadReq, false},
		{Both, ReadReq, true},
		{Both, WriteData, true},
	}
	for _, c := range cases {
		if got := c.state.Accepts(c.cmd); got != c.want {
			t.Errorf("State(%v).Accepts(%v) = %v, want %v", c.state, c.cmd, got, c.want)
		}
	}
}

func TestIssueAndComplete(t *testing.T) {
	c := NewController()
	req := c.Issue(0x1000, 64, ReadReq, nil)
	if req.Ticket != 1 {
		t.Fatalf("first ticket = %d, want 1", req.Ticket)
	}
	if c.Outstanding() != 1 {
		t.Fatalf("Outstanding() = %d, want 1", c.Outstanding())
	}

	matched, err := c.Complete(Response{Ticket: req.Ticket, Size: 64, Payload: make([]byte, 64)})
	if err != nil {
		t.Fatal(err)
	}
	if matched.Address != req.Address {
		t.Fatalf("matched request address = %x, want %x", matched.Address, req.Address)
	}
	if c.Outstanding() != 0 {
		t.Fatalf("Outstanding() after complete = %d, want 0", c.Outstanding())
	}
}

func TestCompleteUnknownTicketFails(t *testing.T) {
	c := NewController()
	if _, err := c.Complete(Response{Ticket: 99}); err == nil {
		t.Fatal("expected error completing an unknown ticket")
	}
}

func TestTicketsAreUnique(t *testing.T) {
	c := NewController()
	seen := map[uint32]bool{}
	for i := 0; i < 10; i++ {
		req := c.Issue(uint32(i), 4, WriteData, nil)
		if seen[req.Ticket] {
			t.Fatalf("duplicate ticket %d", req.Ticket)
		}
		seen[req.Ticket] = true
	}
}
