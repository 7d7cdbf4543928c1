//go:generate mockgen -source=endpoint.go -destination=mocks/mock_endpoint.go -package=mocks

package transport

import (
	"context"
	"errors"
	"fmt"
)

// Endpoint is one rank's view of the star network.
type Endpoint interface {
	// Rank returns the local rank.
	Rank() int
	// Size returns the total number of ranks.
	Size() int
	// Send delivers env to rank to. It fails on routes outside the star.
	Send(ctx context.Context, to int, env Envelope) error
	// Recv blocks until an envelope arrives from any peer.
	Recv(ctx context.Context) (Envelope, error)
	// Close releases the endpoint.
	Close() error
}

// ErrClosed is returned by operations on a closed endpoint.
var ErrClosed = errors.New("endpoint closed")

// ErrPeerLost is returned when a peer disconnects before the render ends.
var ErrPeerLost = errors.New("peer lost")

// ErrPeerClosed is reported when a peer says goodbye. The envelope returned
// with it carries only the peer's rank in From. It wraps ErrPeerLost: a
// receiver that is still owed traffic from that peer treats it as fatal.
var ErrPeerClosed = fmt.Errorf("%w: connection closed by peer", ErrPeerLost)

// checkRoute rejects sends that are not coordinator<->worker.
func checkRoute(from, to, size int) error {
	switch {
	case to < 0 || to >= size:
		return fmt.Errorf("destination rank %d out of range [0, %d)", to, size)
	case to == from:
		return fmt.Errorf("rank %d cannot send to itself", from)
	case from != 0 && to != 0:
		return fmt.Errorf("worker %d cannot send to worker %d", from, to)
	}
	return nil
}
