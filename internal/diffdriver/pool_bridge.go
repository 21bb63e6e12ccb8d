package diffdriver

import (
	"github.com/schmitthub/gitstatusd/internal/gitlib"
	"github.com/schmitthub/gitstatusd/internal/pool"
	"golang.org/x/sync/errgroup"
)

// scheduleOnPool runs fn on the shared worker pool while still letting the
// caller wait on an errgroup.Group for structured completion and
// first-error propagation. errgroup's own goroutine only enqueues the work
// and blocks on its result — actual execution happens on pool, so the
// number of shards running at once is bounded by the pool's fixed worker
// count rather than by however many shards a request happens to create.
// A shard that stopped because its notify callback returned AbortUser has
// finished successfully: its counts are final, so that is not an error.
func scheduleOnPool(g *errgroup.Group, p *pool.Pool, fn func() error) {
	g.Go(func() error {
		done := make(chan error, 1)
		p.Schedule(func() {
			err := fn()
			if gitlib.IsAbort(err) {
				err = nil
			}
			done <- err
		})
		return <-done
	})
}
