package pubsub

import "github.com/ritzau/citegraph/pkg/logging"

// Renderer forwards selection instructions of one view to SSE subscribers
type Renderer struct {
	pub  Publisher
	view string
}

// NewRenderer creates a renderer publishing on the selection topic
func NewRenderer(pub Publisher, view string) *Renderer {
	return &Renderer{pub: pub, view: view}
}

func (r *Renderer) SelectNode(id string) {
	r.publish(SelectionSelect, SelectionEvent{View: r.view, ID: id})
}

func (r *Renderer) UnselectNodes() {
	r.publish(SelectionUnselect, SelectionEvent{View: r.view})
}

func (r *Renderer) ShowLabelsFor(ids []string) {
	r.publish(SelectionLabels, SelectionEvent{View: r.view, IDs: ids})
}

func (r *Renderer) publish(eventType string, ev SelectionEvent) {
	if err := r.pub.Publish(TopicSelection, eventType, ev); err != nil {
		logging.Warn("failed to publish selection event", "view", r.view, "type", eventType, "error", err)
	}
}
