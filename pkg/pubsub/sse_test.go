package pubsub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func receive(t *testing.T, sub Subscription) Event {
	t.Helper()
	select {
	case event := <-sub.Events():
		return event
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for event")
		return Event{}
	}
}

func expectNone(t *testing.T, sub Subscription) {
	t.Helper()
	select {
	case event := <-sub.Events():
		t.Errorf("Received unexpected event %s version %d", event.Type, event.Version)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDatasetStatusReplay(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()
	DefaultTopics(pub)

	// Both views report before anyone subscribes
	statuses := []DatasetStatus{
		{View: "categories", State: "loading"},
		{View: "publications", State: "loading"},
		{View: "categories", State: "ready", Nodes: 7, Links: 6},
	}
	for _, s := range statuses {
		if err := pub.Publish(TopicDatasetStatus, s.State, s); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sub, err := pub.Subscribe(ctx, TopicDatasetStatus)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	for i, want := range statuses {
		event := receive(t, sub)
		if event.Version != i+1 {
			t.Errorf("Expected version %d, got %d", i+1, event.Version)
		}
		var got DatasetStatus
		if err := json.Unmarshal(event.Data, &got); err != nil {
			t.Fatalf("Failed to decode status: %v", err)
		}
		if got != want {
			t.Errorf("Replayed %+v, want %+v", got, want)
		}
	}
	expectNone(t, sub)
}

func TestStylesReplayLastOnly(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()
	DefaultTopics(pub)

	for i := 1; i <= 3; i++ {
		if err := pub.Publish(TopicStyles, "diff", map[string]int{"changed": i}); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sub, err := pub.Subscribe(ctx, TopicStyles)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	if event := receive(t, sub); event.Version != 3 {
		t.Errorf("Expected only the latest version 3, got %d", event.Version)
	}
	expectNone(t, sub)
}

func TestUnbufferedTopic(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	if err := pub.Publish("debug", "event", nil); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sub, err := pub.Subscribe(ctx, "debug")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	expectNone(t, sub)

	if err := pub.Publish("debug", "event", nil); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if event := receive(t, sub); event.Version != 2 {
		t.Errorf("Expected version 2, got %d", event.Version)
	}
}

func TestSubscriptionLifecycle(t *testing.T) {
	pub := NewSSEPublisher()

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := pub.Subscribe(ctx, TopicSelection); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if n := pub.SubscriberCount(TopicSelection); n != 1 {
		t.Fatalf("Expected 1 subscriber, got %d", n)
	}

	cancel()
	deadline := time.Now().Add(time.Second)
	for pub.SubscriberCount(TopicSelection) != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := pub.SubscriberCount(TopicSelection); n != 0 {
		t.Errorf("Expected subscription to close with its context, got %d", n)
	}

	pub.Close()
	if err := pub.Publish(TopicSelection, "select", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if _, err := pub.Subscribe(context.Background(), TopicSelection); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestWriteSSE(t *testing.T) {
	var buf bytes.Buffer
	event := Event{Topic: TopicSelection, Type: SelectionSelect, Data: json.RawMessage(`{"view":"categories","id":"Ethics"}`), Version: 4}

	if err := WriteSSE(&buf, event); err != nil {
		t.Fatalf("WriteSSE() error = %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "id: 4\ndata: ") || !strings.HasSuffix(out, "\n\n") {
		t.Errorf("Unexpected frame %q", out)
	}
	if !strings.Contains(out, `"id":"Ethics"`) {
		t.Errorf("Frame is missing the payload: %q", out)
	}
}

func TestRenderer(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sub, err := pub.Subscribe(ctx, TopicSelection)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	r := NewRenderer(pub, "publications")
	r.SelectNode("SMIOTM")
	r.ShowLabelsFor([]string{"SMIOTM", "KANGRD"})
	r.UnselectNodes()

	wantTypes := []string{SelectionSelect, SelectionLabels, SelectionUnselect}
	for _, want := range wantTypes {
		event := receive(t, sub)
		if event.Type != want {
			t.Errorf("Expected %s, got %s", want, event.Type)
		}
		var payload SelectionEvent
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			t.Fatalf("Failed to decode payload: %v", err)
		}
		if payload.View != "publications" {
			t.Errorf("Expected view publications, got %q", payload.View)
		}
		if want == SelectionLabels && len(payload.IDs) != 2 {
			t.Errorf("Expected 2 labels, got %v", payload.IDs)
		}
	}
}

func TestReplayKeepsMostRecent(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()
	pub.ConfigureTopic("progress", TopicConfig{BufferSize: 2, ReplayAll: true})

	for i := 0; i < 5; i++ {
		if err := pub.Publish("progress", "tick", i); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sub, err := pub.Subscribe(ctx, "progress")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	for _, want := range []int{4, 5} {
		if event := receive(t, sub); event.Version != want {
			t.Errorf("Expected version %d, got %d", want, event.Version)
		}
	}
	expectNone(t, sub)

	if err := pub.Publish("progress", "tick", 5); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if event := receive(t, sub); event.Version != 6 {
		t.Errorf("Expected live version 6, got %d", event.Version)
	}
}
