package coordinator

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/agbru/raysplit/internal/logging"
	"github.com/agbru/raysplit/internal/partition"
)

// runStatic assembles the coordinator's share and one result per busy worker.
func (c *Coordinator) runStatic(ctx context.Context) error {
	plans, err := partition.PlanAll(c.cfg.Mode, c.cfg.Grid(), c.cfg.Procs, c.cfg.CycleSize)
	if err != nil {
		return err
	}
	if err := c.shadeOwn(ctx, plans[0]); err != nil {
		return err
	}

	pending := make(map[int]partition.Assignment)
	for r := 1; r < len(plans); r++ {
		if !plans[r].Empty() {
			pending[r] = plans[r]
		}
	}
	c.logger.Debug("gathering results",
		logging.String("mode", c.cfg.Mode.String()),
		logging.Int("workers", len(pending)))

	ctx, span := c.tracer.Start(ctx, "coordinator.gather", trace.WithAttributes(
		attribute.Int("expected", len(pending)),
	))
	defer span.End()

	for len(pending) > 0 {
		from, res, err := c.receive(ctx, func(rank int) bool {
			_, owed := pending[rank]
			return owed
		})
		if err != nil {
			return err
		}
		plan, ok := pending[from]
		if !ok {
			return c.protocolErr("recv", fmt.Errorf("unexpected or duplicate result from rank %d", from))
		}
		delete(pending, from)
		for _, p := range res.Patches {
			if !containsRegion(plan, p.Region) {
				return c.protocolErr("assemble", fmt.Errorf("rank %d sent region %v outside its assignment", from, p.Region))
			}
		}
		if err := c.assemble(res.Patches); err != nil {
			return err
		}
		c.recordResult(from, res)
		c.logger.Debug("result assembled", logging.Int("from", from), logging.Int("pixels", res.Pixels()))
	}
	return nil
}

func containsRegion(a partition.Assignment, r partition.Region) bool {
	for _, want := range a {
		if want == r {
			return true
		}
	}
	return false
}
