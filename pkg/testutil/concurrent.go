package testutil

import (
	"errors"
	"sync"
	"sync/atomic"

	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/sentinel"
)

// ConcurrentResult tracks outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes int32
	Rejected  int32
	Conflicts int32
	Errors    int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Rejected + r.Conflicts + r.Errors
}

// RunConcurrent starts fn in n goroutines released together and tallies the outcomes.
// Unauthorized, bad-request and stale errors count as rejections; conflicts are counted separately.
func RunConcurrent(n int, fn func(idx int) error) *ConcurrentResult {
	var (
		wg                                  sync.WaitGroup
		successes, rejected, conflicts, errs atomic.Int32
	)
	start := make(chan struct{})

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			err := fn(idx)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, sentinel.ErrConflict), dErrors.HasCode(err, dErrors.CodeConflict):
				conflicts.Add(1)
			case errors.Is(err, sentinel.ErrStale), errors.Is(err, sentinel.ErrAlreadyUsed),
				dErrors.HasCode(err, dErrors.CodeUnauthorized), dErrors.HasCode(err, dErrors.CodeBadRequest):
				rejected.Add(1)
			default:
				errs.Add(1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	return &ConcurrentResult{
		Successes: successes.Load(),
		Rejected:  rejected.Load(),
		Conflicts: conflicts.Load(),
		Errors:    errs.Load(),
	}
}
