package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ritzau/mutual-graph/pkg/logging"
)

var log = logging.New("pubsub")

// ErrClosed is returned after the publisher has been shut down.
var ErrClosed = errors.New("publisher is closed")

// subscriberQueue is the per-subscriber backlog. A subscriber that falls
// further behind loses events rather than stalling a load.
const subscriberQueue = 100

// TopicConfig configures buffering behavior for a topic
type TopicConfig struct {
	BufferSize int  // Number of events to keep for late subscribers (0 = none)
	ReplayAll  bool // Replay the whole buffer instead of only the latest event
}

// topicState is everything the publisher tracks for one topic.
type topicState struct {
	config  TopicConfig
	version int // Last assigned event version, never reset
	buffer  []Event
	subs    map[*sseSubscription]struct{}
}

// replay returns the buffered events a new subscriber should receive. With
// after > 0 (a reconnect carrying Last-Event-ID) only newer events are sent.
func (t *topicState) replay(after int) []Event {
	if after > 0 {
		var out []Event
		for _, ev := range t.buffer {
			if ev.Version > after {
				out = append(out, ev)
			}
		}
		return out
	}
	if len(t.buffer) == 0 || t.config.ReplayAll {
		return t.buffer
	}
	return t.buffer[len(t.buffer)-1:]
}

// SSEPublisher implements Publisher for Server-Sent Event streams. Replay and
// delivery happen under one lock, so a subscriber never sees events out of
// version order.
type SSEPublisher struct {
	mu     sync.Mutex
	topics map[string]*topicState
	closed bool
}

// NewSSEPublisher creates a new SSE-based publisher
func NewSSEPublisher() *SSEPublisher {
	return &SSEPublisher{topics: make(map[string]*topicState)}
}

func (p *SSEPublisher) topic(name string) *topicState {
	t, ok := p.topics[name]
	if !ok {
		t = &topicState{subs: make(map[*sseSubscription]struct{})}
		p.topics[name] = t
	}
	return t
}

// ConfigureTopic sets buffering configuration for a topic
func (p *SSEPublisher) ConfigureTopic(topic string, config TopicConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic(topic).config = config
}

// Subscribe creates a subscription that first receives the topic's replay.
func (p *SSEPublisher) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	return p.SubscribeAfter(ctx, topic, 0)
}

// SubscribeAfter is Subscribe for a client resuming from a known event
// version: only buffered events newer than after are replayed.
func (p *SSEPublisher) SubscribeAfter(ctx context.Context, topic string, after int) (Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}

	t := p.topic(topic)
	sub := &sseSubscription{
		topic:     topic,
		events:    make(chan Event, subscriberQueue),
		publisher: p,
	}
	t.subs[sub] = struct{}{}

	replayed := 0
	for _, ev := range t.replay(after) {
		if sub.offer(ev) {
			replayed++
		}
	}
	if replayed > 0 {
		log.Debug("Replayed events to new subscriber", "topic", topic, "count", replayed)
	}

	go func() {
		<-ctx.Done()
		sub.Close()
	}()
	return sub, nil
}

// Publish sends an event to all subscribers of a topic
func (p *SSEPublisher) Publish(topic string, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	t := p.topic(topic)
	t.version++
	event := Event{Topic: topic, Type: eventType, Data: payload, Version: t.version}

	if n := t.config.BufferSize; n > 0 {
		t.buffer = append(t.buffer, event)
		if len(t.buffer) > n {
			t.buffer = t.buffer[len(t.buffer)-n:]
		}
	}

	for sub := range t.subs {
		if !sub.offer(event) {
			log.Warn("Subscriber too slow, dropping event", "topic", topic, "type", eventType, "version", event.Version)
		}
	}
	return nil
}

// ClearTopic drops the buffered events of a topic so that subscribers
// joining later do not see a previous load's history. Versions keep
// counting up.
func (p *SSEPublisher) ClearTopic(topic string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.topics[topic]; ok {
		t.buffer = nil
	}
}

// Latest returns the most recent buffered event of a topic.
func (p *SSEPublisher) Latest(topic string) (Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.topics[topic]
	if !ok || len(t.buffer) == 0 {
		return Event{}, false
	}
	return t.buffer[len(t.buffer)-1], true
}

// Subscribers returns the number of open subscriptions on a topic.
func (p *SSEPublisher) Subscribers(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.topics[topic]; ok {
		return len(t.subs)
	}
	return 0
}

// Close shuts down the publisher and ends every subscription's stream.
func (p *SSEPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	for _, t := range p.topics {
		for sub := range t.subs {
			sub.end()
		}
		t.subs = make(map[*sseSubscription]struct{})
	}
	return nil
}

// remove detaches sub and ends its stream.
func (p *SSEPublisher) remove(sub *sseSubscription) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.topics[sub.topic]; ok {
		delete(t.subs, sub)
	}
	sub.end()
}

// sseSubscription implements Subscription. Its channel is only written and
// closed with the publisher lock held.
type sseSubscription struct {
	topic     string
	events    chan Event
	publisher *SSEPublisher
	done      bool
}

func (s *sseSubscription) offer(ev Event) bool {
	if s.done {
		return false
	}
	select {
	case s.events <- ev:
		return true
	default:
		return false
	}
}

func (s *sseSubscription) end() {
	if !s.done {
		s.done = true
		close(s.events)
	}
}

// Topic returns the subscription topic
func (s *sseSubscription) Topic() string {
	return s.topic
}

// Events returns the event stream. It is closed when the subscription ends.
func (s *sseSubscription) Events() <-chan Event {
	return s.events
}

// Close ends the subscription. Safe to call more than once.
func (s *sseSubscription) Close() error {
	s.publisher.remove(s)
	return nil
}

// WriteSSE writes one event frame: "id: {version}\ndata: {json}\n\n"
func WriteSSE(w io.Writer, event Event) error {
	frame, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "id: %d\ndata: %s\n\n", event.Version, frame)
	return err
}

// WriteComment writes an SSE comment line, used to keep idle streams open
// through proxies.
func WriteComment(w io.Writer, text string) error {
	_, err := fmt.Fprintf(w, ": %s\n\n", text)
	return err
}
