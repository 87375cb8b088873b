package selection

import (
	"context"
	"errors"
	"sync"

	"github.com/ritzau/citegraph/pkg/graph"
)

// ErrSuperseded is returned for a request replaced by a newer one
var ErrSuperseded = errors.New("selection superseded by a newer request")

// ComputeFunc derives the neighborhood of a focus node
type ComputeFunc func(ctx context.Context, focusID string) (graph.Neighborhood, error)

// IndexCompute computes neighborhoods from an index
func IndexCompute(idx *graph.Index) ComputeFunc {
	return func(_ context.Context, focusID string) (graph.Neighborhood, error) {
		return idx.Neighborhood(focusID), nil
	}
}

// Worker runs neighborhood computations off the caller's goroutine. Only the
// newest request may commit its result; starting a request cancels the one
// in flight.
type Worker struct {
	compute ComputeFunc

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
}

// NewWorker creates a worker around a compute function
func NewWorker(compute ComputeFunc) *Worker {
	return &Worker{compute: compute}
}

// Resolve computes the neighborhood of focusID and passes it to commit while
// the request is still the newest one
func (w *Worker) Resolve(ctx context.Context, focusID string, commit func(graph.Neighborhood)) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	w.generation++
	gen := w.generation
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.mu.Unlock()
	defer cancel()

	type result struct {
		nb  graph.Neighborhood
		err error
	}
	done := make(chan result, 1)
	go func() {
		nb, err := w.compute(ctx, focusID)
		done <- result{nb, err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.generation != gen {
		return ErrSuperseded
	}
	if res.err == nil && ctx.Err() != nil {
		res.err = ctx.Err()
	}
	if res.err != nil {
		return res.err
	}
	commit(res.nb)
	return nil
}

// Cancel invalidates any request in flight
func (w *Worker) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.generation++
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}
