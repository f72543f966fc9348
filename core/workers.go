package core

import (
	"context"
	"sync"

	"github.com/huangsam/devscore/schema"
)

// fanOutRepos runs fetch for every repository on a bounded pool of workers.
// Results keep the input order. The first error in input order is returned
// alongside whatever results were produced.
func fanOutRepos[T any](ctx context.Context, workers int, repos []schema.Repository, fetch func(context.Context, schema.Repository) (T, error)) ([]T, error) {
	results := make([]T, len(repos))
	errs := make([]error, len(repos))
	if len(repos) == 0 {
		return results, nil
	}

	idxCh := make(chan int, len(repos))
	for i := range repos {
		idxCh <- i
	}
	close(idxCh)

	var wg sync.WaitGroup
	for range max(1, min(workers, len(repos))) {
		wg.Go(func() {
			for i := range idxCh {
				if err := ctx.Err(); err != nil {
					errs[i] = err
					continue
				}
				results[i], errs[i] = fetch(ctx, repos[i])
			}
		})
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}
