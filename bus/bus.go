// Package bus implements the core's memory-controller boundary (spec §6):
// request transactions the core issues outward, and the state signal plus
// response transactions a MemoryController answers with. The ticket/
// completion bookkeeping follows the same pattern the teacher uses for its
// coprocessor ticket routing, adapted from an asynchronous worker-completion
// table to the core's synchronous per-cycle transaction model.
package bus

import "fmt"

// Command identifies the kind of outbound memory request.
type Command int

const (
	ReadReq Command = iota
	WriteData
	PreloadData
)

// State is the memory-state signal a MemoryController reports each cycle.
type State int

const (
	None State = iota
	ReadAccept
	WriteAccept
	Both
)

// Accepts reports whether the given command would be accepted under state s.
func (s State) Accepts(cmd Command) bool {
	switch s {
	case Both:
		return true
	case ReadAccept:
		return cmd == ReadReq
	case WriteAccept:
		return cmd == WriteData || cmd == PreloadData
	default:
		return false
	}
}

// Request is an outbound transaction to the memory controller.
type Request struct {
	Ticket  uint32
	Address uint32
	Size    uint32
	Command Command
	Mask    []byte // optional write mask, nil when not applicable
}

// Response is an inbound transaction carrying a completed request's payload.
type Response struct {
	Ticket  uint32
	Size    uint32
	Payload []byte
}

// Controller models the MemoryController boundary: ticket issuance,
// outstanding-request tracking, and response matching.
type Controller struct {
	nextTicket  uint32
	outstanding map[uint32]Request
}

// NewController returns a Controller with ticket numbering starting at 1
// (ticket 0 is reserved, mirroring the teacher's coprocessor ticket scheme
// which also starts numbering at 1).
func NewController() *Controller {
	return &Controller{nextTicket: 1, outstanding: make(map[uint32]Request)}
}

// Issue assigns a fresh ticket to a request and records it as outstanding.
func (c *Controller) Issue(address, size uint32, cmd Command, mask []byte) Request {
	req := Request{Ticket: c.nextTicket, Address: address, Size: size, Command: cmd, Mask: mask}
	c.outstanding[req.Ticket] = req
	c.nextTicket++
	return req
}

// Complete matches a response to its outstanding request and retires it. It
// returns an error if the ticket is unknown, an invariant violation per spec
// §7 (fatal: unrecoverable protocol state).
func (c *Controller) Complete(resp Response) (Request, error) {
	req, ok := c.outstanding[resp.Ticket]
	if !ok {
		return Request{}, fmt.Errorf("bus: invariant violation: response for unknown ticket %d", resp.Ticket)
	}
	delete(c.outstanding, resp.Ticket)
	return req, nil
}

// Outstanding reports how many requests are awaiting a response.
func (c *Controller) Outstanding() int {
	return len(c.outstanding)
}
