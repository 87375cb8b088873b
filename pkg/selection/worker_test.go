package selection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ritzau/citegraph/pkg/graph"
)

func TestWorker_Resolve(t *testing.T) {
	idx := citationIndex()
	w := NewWorker(IndexCompute(idx))

	var got graph.Neighborhood
	err := w.Resolve(context.Background(), "A", func(nb graph.Neighborhood) { got = nb })
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(got.Cited) != 2 {
		t.Errorf("Expected 2 cited nodes, got %d", len(got.Cited))
	}
}

func TestWorker_Superseded(t *testing.T) {
	idx := citationIndex()
	started := make(chan string, 2)
	release := make(chan struct{})
	defer close(release)

	compute := func(ctx context.Context, id string) (graph.Neighborhood, error) {
		started <- id
		if id == "A" {
			select {
			case <-release:
			case <-ctx.Done():
			}
		}
		return idx.Neighborhood(id), nil
	}

	c := NewController(idx, &recordingRenderer{}, WithWorker(NewWorker(compute)))

	slow := make(chan error, 1)
	go func() {
		_, err := c.SelectID(context.Background(), "A")
		slow <- err
	}()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("First request never started")
	}

	state, err := c.SelectID(context.Background(), "B")
	if err != nil {
		t.Fatalf("SelectID(B) error = %v", err)
	}
	if state.FocusID() != "B" {
		t.Errorf("Expected focus B, got %q", state.FocusID())
	}

	select {
	case err := <-slow:
		if !errors.Is(err, ErrSuperseded) {
			t.Errorf("Expected ErrSuperseded for the older request, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Superseded request did not return")
	}

	if c.State().FocusID() != "B" {
		t.Errorf("Older request overwrote the newer focus: %q", c.State().FocusID())
	}
}

func TestWorker_ClearCancels(t *testing.T) {
	idx := citationIndex()
	started := make(chan struct{}, 1)

	compute := func(ctx context.Context, id string) (graph.Neighborhood, error) {
		started <- struct{}{}
		<-ctx.Done()
		return graph.Neighborhood{}, ctx.Err()
	}

	c := NewController(idx, nil, WithWorker(NewWorker(compute)))

	done := make(chan error, 1)
	go func() {
		_, err := c.SelectID(context.Background(), "A")
		done <- err
	}()
	<-started

	c.Clear()

	select {
	case err := <-done:
		if !errors.Is(err, ErrSuperseded) {
			t.Errorf("Expected ErrSuperseded after clear, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Request was not cancelled by clear")
	}
	if !c.State().Idle() {
		t.Error("Cancelled request should not change the state")
	}
}

func TestWorker_ContextCancelled(t *testing.T) {
	w := NewWorker(func(ctx context.Context, id string) (graph.Neighborhood, error) {
		<-ctx.Done()
		return graph.Neighborhood{}, ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	committed := false
	err := w.Resolve(ctx, "A", func(graph.Neighborhood) { committed = true })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	if committed {
		t.Error("Cancelled request should not commit")
	}
}

func TestWorker_SelectSupersedesPending(t *testing.T) {
	idx := citationIndex()
	started := make(chan struct{}, 1)
	release := make(chan struct{})

	compute := func(ctx context.Context, id string) (graph.Neighborhood, error) {
		started <- struct{}{}
		<-release
		return idx.Neighborhood(id), nil
	}

	c := NewController(idx, &recordingRenderer{}, WithWorker(NewWorker(compute)))

	slow := make(chan error, 1)
	go func() {
		_, err := c.SelectID(context.Background(), "A")
		slow <- err
	}()
	<-started

	b, _ := idx.Node("B")
	if state := c.Select(&b); state.FocusID() != "B" {
		t.Fatalf("Expected focus B, got %q", state.FocusID())
	}
	close(release)

	select {
	case err := <-slow:
		if !errors.Is(err, ErrSuperseded) {
			t.Errorf("Expected ErrSuperseded for the older request, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Superseded request did not return")
	}
	if got := c.State().FocusID(); got != "B" {
		t.Errorf("Older request overwrote the newer focus: %q", got)
	}
}

func TestWorker_CloseDropsPending(t *testing.T) {
	idx := citationIndex()
	started := make(chan struct{}, 1)
	release := make(chan struct{})

	compute := func(ctx context.Context, id string) (graph.Neighborhood, error) {
		started <- struct{}{}
		<-release
		return idx.Neighborhood(id), nil
	}

	r := &recordingRenderer{}
	c := NewController(idx, r, WithWorker(NewWorker(compute)))

	done := make(chan error, 1)
	go func() {
		_, err := c.SelectID(context.Background(), "A")
		done <- err
	}()
	<-started

	c.Close()
	close(release)

	select {
	case err := <-done:
		if !errors.Is(err, ErrSuperseded) {
			t.Errorf("Expected ErrSuperseded after close, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Pending request did not return")
	}

	c.Clear()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) != 0 {
		t.Errorf("Closed controller reached the renderer: %v", r.calls)
	}
}
