package selection

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ritzau/citegraph/pkg/graph"
	"github.com/ritzau/citegraph/pkg/logging"
	"github.com/ritzau/citegraph/pkg/model"
)

// ErrUnknownNode is returned when selecting an ID that is not in the graph
var ErrUnknownNode = errors.New("unknown node")

// Renderer receives selection instructions for an external graph renderer
type Renderer interface {
	SelectNode(id string)
	UnselectNodes()
	ShowLabelsFor(ids []string)
}

type nopRenderer struct{}

func (nopRenderer) SelectNode(string)     {}
func (nopRenderer) UnselectNodes()        {}
func (nopRenderer) ShowLabelsFor([]string) {}

// Controller is the single entry point for selection changes. Clicks,
// search picks and panel activations all go through Select, SelectID or
// Clear.
type Controller struct {
	mu       sync.Mutex
	index    *graph.Index
	renderer Renderer
	worker   *Worker
	state    State
	closed   bool
}

// Option configures a Controller
type Option func(*Controller)

// WithWorker resolves neighborhoods on a background worker, so that a newer
// selection supersedes an older one still in flight
func WithWorker(w *Worker) Option {
	return func(c *Controller) {
		c.worker = w
	}
}

// NewController creates an idle controller for one index
func NewController(index *graph.Index, renderer Renderer, opts ...Option) *Controller {
	if renderer == nil {
		renderer = nopRenderer{}
	}
	c := &Controller{
		index:    index,
		renderer: renderer,
		state:    IdleState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Select focuses node, or clears the selection when node is nil.
// Selecting the focused node again reasserts the same state.
func (c *Controller) Select(node *model.Node) State {
	if node == nil {
		return c.Clear()
	}
	// Cancel before locking, a committing worker holds its lock while taking c.mu
	if c.worker != nil {
		c.worker.Cancel()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.apply(*node, c.index.Neighborhood(node.ID))
	return c.state
}

// SelectID focuses the node with the given ID. With a worker configured the
// neighborhood is resolved in the background and ErrSuperseded is returned
// if a newer selection started in the meantime or the controller was closed.
func (c *Controller) SelectID(ctx context.Context, id string) (State, error) {
	node, ok := c.index.Node(id)
	if !ok {
		return c.State(), fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}

	if c.worker == nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.apply(node, c.index.Neighborhood(id)) {
			return c.state, ErrSuperseded
		}
		return c.state, nil
	}

	var state State
	applied := false
	err := c.worker.Resolve(ctx, id, func(nb graph.Neighborhood) {
		c.mu.Lock()
		defer c.mu.Unlock()
		applied = c.apply(node, nb)
		state = c.state
	})
	if err == nil && !applied {
		err = ErrSuperseded
	}
	if err != nil {
		logging.DebugContext(ctx, "selection not applied", "id", id, "error", err)
		return c.State(), err
	}
	return state, nil
}

// Clear returns to the idle state. Clearing an idle controller is a no-op
// apart from repeating the unselect instruction.
func (c *Controller) Clear() State {
	// Cancel before locking, a committing worker holds its lock while taking c.mu
	if c.worker != nil {
		c.worker.Cancel()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return c.state
	}
	c.state = IdleState()
	c.renderer.UnselectNodes()
	c.renderer.ShowLabelsFor(nil)
	logging.Debug("selection cleared")
	return c.state
}

// Close retires the controller. Requests still in flight are dropped and
// later calls leave the renderer untouched.
func (c *Controller) Close() {
	if c.worker != nil {
		c.worker.Cancel()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// State returns the current selection
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the current selection for presentation
func (c *Controller) Snapshot() Snapshot {
	return c.State().snapshot()
}

// apply must be called with c.mu held. It reports false once the
// controller is closed.
func (c *Controller) apply(node model.Node, nb graph.Neighborhood) bool {
	if c.closed {
		return false
	}
	c.state = focusedState(node, nb)
	c.renderer.SelectNode(node.ID)
	c.renderer.ShowLabelsFor(c.state.Labels)
	logging.Debug("node selected", "id", node.ID,
		"citing", len(nb.Citing), "cited", len(nb.Cited), "siblings", len(nb.Siblings))
	return true
}
