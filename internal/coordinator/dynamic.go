package coordinator

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/agbru/raysplit/internal/logging"
	"github.com/agbru/raysplit/internal/partition"
	"github.com/agbru/raysplit/internal/transport"
)

// queue is the FIFO of blocks not yet dispatched.
type queue struct {
	tiles []partition.Region
	next  int
}

func (q *queue) pop() (int, partition.Region, bool) {
	if q.next >= len(q.tiles) {
		return 0, partition.Region{}, false
	}
	seq := q.next
	q.next++
	return seq, q.tiles[seq], true
}

// runDynamic serves the block queue to the workers until it is empty and
// every dispatched block has come back.
func (c *Coordinator) runDynamic(ctx context.Context) error {
	tiles, err := partition.Tiles(c.cfg.Grid(), c.cfg.BlockWidth, c.cfg.BlockHeight)
	if err != nil {
		return err
	}
	q := &queue{tiles: tiles}

	ctx, span := c.tracer.Start(ctx, "coordinator.dispatch", trace.WithAttributes(
		attribute.Int("blocks", len(tiles)),
		attribute.Int("workers", c.cfg.Procs-1),
	))
	defer span.End()

	if c.cfg.Procs == 1 {
		return c.drainLocally(ctx, q)
	}

	outstanding := make(map[int]partition.Region, c.cfg.Procs-1)
	for r := 1; r < c.cfg.Procs; r++ {
		if err := c.dispatchNext(ctx, q, r, outstanding); err != nil {
			return err
		}
	}

	for len(outstanding) > 0 {
		from, res, err := c.receive(ctx, func(rank int) bool {
			_, owed := outstanding[rank]
			return owed
		})
		if err != nil {
			return err
		}
		block, ok := outstanding[from]
		if !ok {
			return c.protocolErr("recv", fmt.Errorf("result from rank %d with no outstanding block", from))
		}
		if len(res.Patches) != 1 || res.Patches[0].Region != block {
			return c.protocolErr("assemble", fmt.Errorf("rank %d did not return block %v", from, block))
		}
		delete(outstanding, from)
		if err := c.assemble(res.Patches); err != nil {
			return err
		}
		c.recordResult(from, res)
		if err := c.dispatchNext(ctx, q, from, outstanding); err != nil {
			return err
		}
	}
	c.logger.Debug("queue drained", logging.Int("blocks", q.next))
	return nil
}

// dispatchNext hands rank the next block, or the termination marker when the
// queue is empty.
func (c *Coordinator) dispatchNext(ctx context.Context, q *queue, rank int, outstanding map[int]partition.Region) error {
	seq, block, ok := q.pop()
	env := transport.NewTermination()
	if ok {
		env = transport.NewDispatch(seq, block)
	}
	if err := c.ep.Send(ctx, rank, env); err != nil {
		return c.protocolErr("send", err)
	}
	if ok {
		outstanding[rank] = block
		c.collector.AddBlock()
		c.metrics.BlockDispatched(c.cfg.Mode.String())
	}
	return nil
}

// drainLocally shades every block on rank 0 when there are no workers.
func (c *Coordinator) drainLocally(ctx context.Context, q *queue) error {
	for {
		_, block, ok := q.pop()
		if !ok {
			return nil
		}
		c.collector.AddBlock()
		c.metrics.BlockDispatched(c.cfg.Mode.String())
		if err := c.shadeOwn(ctx, partition.Assignment{block}); err != nil {
			return err
		}
	}
}
