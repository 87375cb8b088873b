package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ritzau/citegraph/pkg/logging"
)

// ErrClosed is returned after the publisher has been closed
var ErrClosed = errors.New("publisher is closed")

// subscriberQueue bounds the events waiting for a slow client
const subscriberQueue = 100

// TopicConfig controls what a new subscriber is sent on connect
type TopicConfig struct {
	BufferSize int  // events kept for replay, 0 disables replay
	ReplayAll  bool // replay every kept event instead of only the latest
}

// topic holds the per-topic state of the publisher
type topic struct {
	cfg     TopicConfig
	version int
	recent  []Event
	subs    map[*sseSubscription]struct{}
}

// remember keeps ev for later subscribers, dropping the oldest first
func (t *topic) remember(ev Event) {
	if t.cfg.BufferSize <= 0 {
		return
	}
	t.recent = append(t.recent, ev)
	if n := len(t.recent) - t.cfg.BufferSize; n > 0 {
		t.recent = append(t.recent[:0:0], t.recent[n:]...)
	}
}

// replay returns the events a new subscriber should see
func (t *topic) replay() []Event {
	if len(t.recent) == 0 {
		return nil
	}
	if !t.cfg.ReplayAll {
		return []Event{t.recent[len(t.recent)-1]}
	}
	from := max(len(t.recent)-subscriberQueue, 0)
	return append([]Event(nil), t.recent[from:]...)
}

// SSEPublisher fans events out to Server-Sent Event subscribers
type SSEPublisher struct {
	mu     sync.Mutex
	topics map[string]*topic
	closed bool
}

// NewSSEPublisher creates a publisher with no topics configured. Topics
// without configuration are delivered live only.
func NewSSEPublisher() *SSEPublisher {
	return &SSEPublisher{topics: make(map[string]*topic)}
}

// DefaultTopics configures the server topics. A new subscriber gets the
// latest status of every view and the latest selection and style events.
func DefaultTopics(p *SSEPublisher) {
	p.ConfigureTopic(TopicDatasetStatus, TopicConfig{BufferSize: 8, ReplayAll: true})
	p.ConfigureTopic(TopicSelection, TopicConfig{BufferSize: 3, ReplayAll: true})
	p.ConfigureTopic(TopicStyles, TopicConfig{BufferSize: 1})
}

// lookup returns the state for name, creating it on first use.
// Callers hold p.mu.
func (p *SSEPublisher) lookup(name string) *topic {
	t, ok := p.topics[name]
	if !ok {
		t = &topic{subs: make(map[*sseSubscription]struct{})}
		p.topics[name] = t
	}
	return t
}

// ConfigureTopic sets the replay policy of a topic
func (p *SSEPublisher) ConfigureTopic(name string, cfg TopicConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lookup(name).cfg = cfg
}

// SubscriberCount returns the number of open subscriptions to a topic
func (p *SSEPublisher) SubscriberCount(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.topics[name]; ok {
		return len(t.subs)
	}
	return 0
}

// Subscribe registers a subscription and queues the replayed events before
// any live event. The subscription closes when ctx is done.
func (p *SSEPublisher) Subscribe(ctx context.Context, name string) (Subscription, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}

	t := p.lookup(name)
	sub := &sseSubscription{
		topic:     name,
		events:    make(chan Event, subscriberQueue),
		publisher: p,
	}
	replay := t.replay()
	for _, ev := range replay {
		sub.events <- ev
	}
	t.subs[sub] = struct{}{}
	p.mu.Unlock()

	if len(replay) > 0 {
		logging.Debug("replayed events to new subscriber", "topic", name, "count", len(replay))
	}

	go func() {
		<-ctx.Done()
		sub.Close()
	}()

	return sub, nil
}

// Publish encodes data and delivers it to every subscriber of the topic.
// A subscriber whose queue is full misses the event.
func (p *SSEPublisher) Publish(name string, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", name, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	t := p.lookup(name)
	t.version++
	ev := Event{Topic: name, Type: eventType, Data: payload, Version: t.version}
	t.remember(ev)

	for sub := range t.subs {
		select {
		case sub.events <- ev:
		default:
			logging.Warn("subscriber queue full, dropping event", "topic", name, "type", eventType, "version", ev.Version)
		}
	}
	return nil
}

// Close ends every subscription. Publishing afterwards fails with ErrClosed.
func (p *SSEPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	for _, t := range p.topics {
		for sub := range t.subs {
			close(sub.events)
		}
		t.subs = make(map[*sseSubscription]struct{})
	}
	return nil
}

func (p *SSEPublisher) unsubscribe(sub *sseSubscription) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.topics[sub.topic]; ok {
		delete(t.subs, sub)
	}
}

type sseSubscription struct {
	topic     string
	events    chan Event
	publisher *SSEPublisher
	once      sync.Once
}

func (s *sseSubscription) Topic() string {
	return s.topic
}

func (s *sseSubscription) Events() <-chan Event {
	return s.events
}

// Close detaches the subscription; it is safe to call more than once
func (s *sseSubscription) Close() error {
	s.once.Do(func() { s.publisher.unsubscribe(s) })
	return nil
}

// WriteSSE writes one event frame: "id: {version}\ndata: {json}\n\n"
func WriteSSE(w io.Writer, event Event) error {
	frame, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	_, err = fmt.Fprintf(w, "id: %d\ndata: %s\n\n", event.Version, frame)
	return err
}
