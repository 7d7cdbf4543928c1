package transport

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

const helloRetryInterval = 250 * time.Millisecond

// RankSubject returns the subject rank listens on for job.
func RankSubject(job string, rank int) string {
	return "raysplit." + job + ".rank." + strconv.Itoa(rank)
}

// helloSubject is where workers announce themselves to the coordinator.
func helloSubject(job string) string {
	return "raysplit." + job + ".hello"
}

// NATSConfig configures a NATS endpoint.
type NATSConfig struct {
	URL   string
	Job   string
	Rank  int
	Size  int
	Codec Codec
	// Options are passed to nats.Connect.
	Options []nats.Option
}

type natsEndpoint struct {
	cfg  NATSConfig
	nc   *nats.Conn
	sub  *nats.Subscription
	msgs chan *nats.Msg
	once sync.Once
	done chan struct{}
}

// ConnectNATS joins job as cfg.Rank. Core NATS does not buffer messages for
// absent subscribers, so the endpoints rendezvous before returning: each
// worker requests on the hello subject until the coordinator answers, and
// the coordinator returns once every worker has said hello.
func ConnectNATS(ctx context.Context, cfg NATSConfig) (Endpoint, error) {
	if cfg.Rank < 0 || cfg.Rank >= cfg.Size {
		return nil, fmt.Errorf("rank %d outside [0, %d)", cfg.Rank, cfg.Size)
	}
	if cfg.Job == "" {
		return nil, errors.New("nats endpoint needs a job id")
	}
	opts := append([]nats.Option{nats.Name(fmt.Sprintf("raysplit-%s-%d", cfg.Job, cfg.Rank))}, cfg.Options...)
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.URL, err)
	}
	ep := &natsEndpoint{cfg: cfg, nc: nc, msgs: make(chan *nats.Msg, 64*max(cfg.Size, 1)), done: make(chan struct{})}
	ep.sub, err = nc.ChanSubscribe(RankSubject(cfg.Job, cfg.Rank), ep.msgs)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	if cfg.Rank == 0 {
		err = ep.awaitWorkers(ctx)
	} else {
		err = ep.announce(ctx)
	}
	if err != nil {
		_ = ep.Close()
		return nil, err
	}
	return ep, nil
}

func (e *natsEndpoint) awaitWorkers(ctx context.Context) error {
	var mu sync.Mutex
	seen := make(map[int]bool)
	all := make(chan struct{})
	sub, err := e.nc.Subscribe(helloSubject(e.cfg.Job), func(m *nats.Msg) {
		rank, err := strconv.Atoi(string(m.Data))
		if err != nil || rank < 1 || rank >= e.cfg.Size {
			return
		}
		_ = m.Respond([]byte("ok"))
		mu.Lock()
		defer mu.Unlock()
		if !seen[rank] {
			seen[rank] = true
			if len(seen) == e.cfg.Size-1 {
				close(all)
			}
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe hello: %w", err)
	}
	// Late retries from workers still get an answer until the endpoint closes.
	go func() {
		<-e.done
		_ = sub.Unsubscribe()
	}()
	if e.cfg.Size == 1 {
		return nil
	}
	select {
	case <-all:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *natsEndpoint) announce(ctx context.Context) error {
	subj := helloSubject(e.cfg.Job)
	payload := []byte(strconv.Itoa(e.cfg.Rank))
	for {
		reqCtx, cancel := context.WithTimeout(ctx, helloRetryInterval)
		_, err := e.nc.RequestWithContext(reqCtx, subj, payload)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !errors.Is(err, nats.ErrNoResponders) && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, nats.ErrTimeout) {
			return fmt.Errorf("hello: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(helloRetryInterval):
		}
	}
}

func (e *natsEndpoint) Rank() int { return e.cfg.Rank }
func (e *natsEndpoint) Size() int { return e.cfg.Size }

func (e *natsEndpoint) Send(ctx context.Context, to int, env Envelope) error {
	select {
	case <-e.done:
		return ErrClosed
	default:
	}
	if err := checkRoute(e.cfg.Rank, to, e.cfg.Size); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	env.From = e.cfg.Rank
	data, err := e.cfg.Codec.Encode(env)
	if err != nil {
		return err
	}
	return e.nc.Publish(RankSubject(e.cfg.Job, to), data)
}

func (e *natsEndpoint) Recv(ctx context.Context) (Envelope, error) {
	select {
	case m := <-e.msgs:
		return e.cfg.Codec.Decode(m.Data)
	case <-e.done:
		return Envelope{}, ErrClosed
	case <-ctx.Done():
		return Envelope{}, ctx.Err()
	}
}

func (e *natsEndpoint) Close() error {
	var err error
	e.once.Do(func() {
		close(e.done)
		if e.sub != nil {
			_ = e.sub.Unsubscribe()
		}
		// Flush pending publishes so the last result or termination marker
		// is not dropped.
		err = e.nc.Drain()
	})
	return err
}
