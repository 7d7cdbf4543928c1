// Package parallel provides the small concurrency helpers used to shade a
// region on several goroutines.
package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ForEachRow calls fn for every row in [y0, y0+h) using up to workers
// goroutines. Rows are handed out in increasing order. After the first error
// no further rows are started and that error is returned. With workers <= 1
// rows run sequentially on the calling goroutine.
func ForEachRow(ctx context.Context, y0, h, workers int, fn func(row int) error) error {
	if workers <= 1 || h <= 1 {
		for row := y0; row < y0+h; row++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(row); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	rows := make(chan int)
	g.Go(func() error {
		defer close(rows)
		for row := y0; row < y0+h; row++ {
			if gctx.Err() != nil {
				// nil unless the caller canceled; a failed row already
				// holds the group error.
				return ctx.Err()
			}
			select {
			case rows <- row:
			case <-gctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for i := 0; i < min(workers, h); i++ {
		g.Go(func() error {
			for row := range rows {
				if err := fn(row); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
