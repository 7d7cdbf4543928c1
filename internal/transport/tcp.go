package transport

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// maxFrame bounds a single message.
const maxFrame = 1 << 30

const dialRetryInterval = 200 * time.Millisecond

// writeFrame writes a 4-byte big-endian length followed by the payload. A
// zero-length frame says goodbye: the peer is closing on purpose. Encoded
// envelopes are never empty.
func writeFrame(w io.Writer, payload []byte) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > maxFrame {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

type inbound struct {
	env Envelope
	err error
}

type peerConn struct {
	rank int
	conn net.Conn
	wmu  sync.Mutex
	w    *bufio.Writer
}

func (p *peerConn) send(payload []byte) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	if err := writeFrame(p.w, payload); err != nil {
		return err
	}
	return p.w.Flush()
}

// tcpEndpoint is shared by the coordinator (one peer per worker) and the
// workers (a single peer, rank 0).
type tcpEndpoint struct {
	rank, size int
	codec      Codec
	peers      map[int]*peerConn
	inbox      chan inbound
	done       chan struct{}
	once       sync.Once
}

func newTCPEndpoint(rank, size int, codec Codec) *tcpEndpoint {
	return &tcpEndpoint{
		rank:  rank,
		size:  size,
		codec: codec,
		peers: make(map[int]*peerConn),
		inbox: make(chan inbound, size),
		done:  make(chan struct{}),
	}
}

func (e *tcpEndpoint) start(p *peerConn) {
	e.peers[p.rank] = p
	go e.readLoop(p)
}

func (e *tcpEndpoint) readLoop(p *peerConn) {
	r := bufio.NewReader(p.conn)
	for {
		data, err := readFrame(r)
		var in inbound
		switch {
		case err == nil && len(data) == 0:
			in.env.From = p.rank
			in.err = fmt.Errorf("rank %d: %w", p.rank, ErrPeerClosed)
			err = ErrPeerClosed
		case err != nil:
			in.err = fmt.Errorf("rank %d: %w: %v", p.rank, ErrPeerLost, err)
		default:
			in.env, in.err = e.codec.Decode(data)
			if in.err == nil && in.env.From != p.rank {
				in.err = fmt.Errorf("connection of rank %d carried envelope from rank %d", p.rank, in.env.From)
			}
		}
		select {
		case e.inbox <- in:
		case <-e.done:
			return
		}
		if err != nil {
			return
		}
	}
}

func (e *tcpEndpoint) Rank() int { return e.rank }
func (e *tcpEndpoint) Size() int { return e.size }

func (e *tcpEndpoint) Send(ctx context.Context, to int, env Envelope) error {
	select {
	case <-e.done:
		return ErrClosed
	default:
	}
	if err := checkRoute(e.rank, to, e.size); err != nil {
		return err
	}
	p, ok := e.peers[to]
	if !ok {
		return fmt.Errorf("no connection to rank %d", to)
	}
	env.From = e.rank
	data, err := e.codec.Encode(env)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.send(data)
}

func (e *tcpEndpoint) Recv(ctx context.Context) (Envelope, error) {
	select {
	case in := <-e.inbox:
		return in.env, in.err
	case <-e.done:
		return Envelope{}, ErrClosed
	case <-ctx.Done():
		return Envelope{}, ctx.Err()
	}
}

func (e *tcpEndpoint) Close() error {
	var errs []error
	e.once.Do(func() {
		close(e.done)
		for _, p := range e.peers {
			_ = p.send(nil)
			errs = append(errs, p.conn.Close())
		}
	})
	return errors.Join(errs...)
}

// TCPListener accepts worker connections for the coordinator.
type TCPListener struct {
	ln    net.Listener
	size  int
	codec Codec
}

// ListenTCP opens the coordinator's listening socket.
func ListenTCP(addr string, size int, codec Codec) (*TCPListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &TCPListener{ln: ln, size: size, codec: codec}, nil
}

// Addr returns the address the listener is bound to.
func (l *TCPListener) Addr() string { return l.ln.Addr().String() }

// Close stops listening. Connections already accepted are unaffected.
func (l *TCPListener) Close() error { return l.ln.Close() }

// Accept blocks until every worker rank 1..size-1 has connected and
// identified itself, then returns the coordinator endpoint.
func (l *TCPListener) Accept(ctx context.Context) (Endpoint, error) {
	ep := newTCPEndpoint(0, l.size, l.codec)
	stop := context.AfterFunc(ctx, func() { _ = l.ln.Close() })
	defer stop()
	for len(ep.peers) < l.size-1 {
		conn, err := l.ln.Accept()
		if err != nil {
			_ = ep.Close()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		rank, err := readHello(conn)
		if err == nil {
			switch _, dup := ep.peers[rank]; {
			case rank < 1 || rank >= l.size:
				err = fmt.Errorf("hello from rank %d outside [1, %d)", rank, l.size)
			case dup:
				err = fmt.Errorf("rank %d connected twice", rank)
			}
		}
		if err != nil {
			_ = conn.Close()
			_ = ep.Close()
			return nil, err
		}
		ep.start(&peerConn{rank: rank, conn: conn, w: bufio.NewWriter(conn)})
	}
	return ep, nil
}

func readHello(conn net.Conn) (int, error) {
	data, err := readFrame(conn)
	if err != nil {
		return 0, fmt.Errorf("read hello: %w", err)
	}
	if len(data) != 4 {
		return 0, fmt.Errorf("malformed hello of %d bytes", len(data))
	}
	return int(binary.BigEndian.Uint32(data)), nil
}

// DialTCP connects worker rank to the coordinator at addr, retrying until
// the coordinator is listening or ctx is canceled.
func DialTCP(ctx context.Context, addr string, rank, size int, codec Codec) (Endpoint, error) {
	if rank < 1 || rank >= size {
		return nil, fmt.Errorf("worker rank %d outside [1, %d)", rank, size)
	}
	var d net.Dialer
	var conn net.Conn
	for {
		var err error
		conn, err = d.DialContext(ctx, "tcp", addr)
		if err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(dialRetryInterval):
		}
	}
	var hello [4]byte
	binary.BigEndian.PutUint32(hello[:], uint32(rank))
	if err := writeFrame(conn, hello[:]); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send hello: %w", err)
	}
	ep := newTCPEndpoint(rank, size, codec)
	ep.start(&peerConn{rank: 0, conn: conn, w: bufio.NewWriter(conn)})
	return ep, nil
}
