package driver

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"mica/internal/source"
)

// CompileFiles compiles the given contract files concurrently, at most
// jobs at a time (GOMAXPROCS when jobs <= 0). Files are preloaded into
// the file set serially; results come back in the input's sorted order
// regardless of completion order. The first failure cancels the rest.
func CompileFiles(ctx context.Context, fset *source.FileSet, paths []string, job Job, jobs int) ([]Result, error) {
	if err := job.Check(); err != nil {
		return nil, err
	}

	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	ids := make([]source.FileID, len(sorted))
	for i, path := range sorted {
		id, err := fset.Load(path)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}

	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]Result, len(sorted))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, max(len(sorted), 1)))
	for i := range sorted {
		i := i
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			res, err := compile(fset, ids[i], job)
			if err != nil {
				return err
			}
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
