package transport

import (
	"fmt"
	"time"

	"github.com/agbru/raysplit/internal/partition"
	"github.com/agbru/raysplit/internal/pixel"
)

// Kind tags the payload carried by an Envelope.
type Kind uint8

// Envelope kinds.
const (
	KindResult Kind = iota + 1
	KindDispatch
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindResult:
		return "result"
	case KindDispatch:
		return "dispatch"
	case KindFailure:
		return "failure"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Result carries shaded pixels back to the coordinator together with the
// sender's measured shading time. In dynamic mode it also asks for the next
// block.
type Result struct {
	Patches []pixel.Patch
	Compute time.Duration
}

// Pixels returns the number of pixels carried.
func (r *Result) Pixels() int {
	n := 0
	for _, p := range r.Patches {
		n += p.Pixels()
	}
	return n
}

// Dispatch hands one dynamic block to a worker, or tells it to stop.
type Dispatch struct {
	Block partition.Region
	// Seq is the block's position in the dispatch queue.
	Seq  int
	Done bool
}

// Failure reports a fatal error on the sending rank. No pixels accompany it.
type Failure struct {
	Kind     string
	Message  string
	Row, Col int
}

// Envelope is the unit of communication. Exactly one payload matches Kind.
type Envelope struct {
	From     int
	Kind     Kind
	Result   *Result
	Dispatch *Dispatch
	Failure  *Failure
}

// NewResult wraps a Result.
func NewResult(from int, r Result) Envelope {
	return Envelope{From: from, Kind: KindResult, Result: &r}
}

// NewDispatch wraps a block dispatch.
func NewDispatch(seq int, block partition.Region) Envelope {
	return Envelope{From: 0, Kind: KindDispatch, Dispatch: &Dispatch{Block: block, Seq: seq}}
}

// NewTermination returns the marker that ends a worker's dynamic loop.
func NewTermination() Envelope {
	return Envelope{From: 0, Kind: KindDispatch, Dispatch: &Dispatch{Done: true}}
}

// NewFailure wraps a failure report.
func NewFailure(from int, f Failure) Envelope {
	return Envelope{From: from, Kind: KindFailure, Failure: &f}
}

// Validate checks that the payload matches the kind.
func (e Envelope) Validate() error {
	ok := false
	switch e.Kind {
	case KindResult:
		ok = e.Result != nil
	case KindDispatch:
		ok = e.Dispatch != nil
	case KindFailure:
		ok = e.Failure != nil
	}
	if !ok {
		return fmt.Errorf("malformed %s envelope from rank %d", e.Kind, e.From)
	}
	return nil
}
