package rest

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// DefaultBatchWorkers bounds CallAll when no limit is given.
const DefaultBatchWorkers = 4

// CallAll runs requests concurrently, at most workers at a time, and returns
// results in request order. The first error cancels calls not yet started.
func CallAll[R any](ctx context.Context, d *Dispatcher, workers int, reqs ...Request[R]) ([]R, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if workers < 1 {
		workers = DefaultBatchWorkers
	}

	results := make([]R, len(reqs))
	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx).WithCancelOnError().WithFirstError()
	for i, req := range reqs {
		p.Go(func(ctx context.Context) error {
			value, err := Call(ctx, d, req)
			if err != nil {
				return err
			}
			results[i] = value
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
