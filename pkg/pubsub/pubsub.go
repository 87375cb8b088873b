// Package pubsub pushes dataset, selection and style events to renderers
// over Server-Sent Events.
package pubsub

import (
	"context"
	"encoding/json"
)

// Topics published by the server
const (
	TopicDatasetStatus = "dataset_status"
	TopicSelection     = "selection"
	TopicStyles        = "styles"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "dataset_status", "selection")
	Type    string          `json:"type"`    // Event type (e.g., "loading", "ready", "select")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data any) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// DatasetStatus reports the load state of a view
type DatasetStatus struct {
	View         string `json:"view"`
	State        string `json:"state"` // loading, ready, error
	Message      string `json:"message,omitempty"`
	Nodes        int    `json:"nodes"`
	Links        int    `json:"links"`
	InvalidLinks int    `json:"invalidLinks"`
}

// SelectionEvent is a renderer instruction
type SelectionEvent struct {
	View string   `json:"view"`
	ID   string   `json:"id,omitempty"`  // select
	IDs  []string `json:"ids,omitempty"` // labels
}

// Selection event types
const (
	SelectionSelect   = "select"
	SelectionUnselect = "unselect"
	SelectionLabels   = "labels"
)
