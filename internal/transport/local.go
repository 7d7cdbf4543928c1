package transport

import (
	"context"
	"fmt"
	"sync"
)

// Network is an in-process star of Size endpoints. Every envelope crosses
// the network in encoded form.
type Network struct {
	codec   Codec
	inboxes []chan []byte
	done    chan struct{}
	once    sync.Once
}

// NewNetwork creates an in-process network of size ranks.
func NewNetwork(size int, codec Codec) *Network {
	n := &Network{codec: codec, inboxes: make([]chan []byte, size), done: make(chan struct{})}
	for i := range n.inboxes {
		// Rank 0 may have one message in flight from every worker.
		n.inboxes[i] = make(chan []byte, size)
	}
	return n
}

// Endpoint returns the endpoint of rank.
func (n *Network) Endpoint(rank int) Endpoint {
	if rank < 0 || rank >= len(n.inboxes) {
		panic(fmt.Sprintf("transport: rank %d out of range [0, %d)", rank, len(n.inboxes)))
	}
	return &localEndpoint{net: n, rank: rank}
}

// Shutdown unblocks every pending operation with ErrClosed.
func (n *Network) Shutdown() {
	n.once.Do(func() { close(n.done) })
}

type localEndpoint struct {
	net    *Network
	rank   int
	mu     sync.Mutex
	closed bool
}

func (e *localEndpoint) Rank() int { return e.rank }
func (e *localEndpoint) Size() int { return len(e.net.inboxes) }

func (e *localEndpoint) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *localEndpoint) Send(ctx context.Context, to int, env Envelope) error {
	if e.isClosed() {
		return ErrClosed
	}
	if err := checkRoute(e.rank, to, e.Size()); err != nil {
		return err
	}
	env.From = e.rank
	data, err := e.net.codec.Encode(env)
	if err != nil {
		return err
	}
	select {
	case e.net.inboxes[to] <- data:
		return nil
	case <-e.net.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *localEndpoint) Recv(ctx context.Context) (Envelope, error) {
	if e.isClosed() {
		return Envelope{}, ErrClosed
	}
	select {
	case data := <-e.net.inboxes[e.rank]:
		return e.net.codec.Decode(data)
	case <-e.net.done:
		return Envelope{}, ErrClosed
	case <-ctx.Done():
		return Envelope{}, ctx.Err()
	}
}

func (e *localEndpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
