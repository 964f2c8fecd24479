package events

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"nanobanana/internal/workflow"
)

// Broker delivers messages to subscribers of a topic. Topics are session IDs.
type Broker interface {
	Publish(ctx context.Context, topic string, msg []byte) error
	Subscribe(topic string) (<-chan []byte, func())
}

// Hub is the in-process broker. All topic bookkeeping happens on the Run
// goroutine; subscribers own their channels and the hub drops messages for
// subscribers that are not reading.
type Hub struct {
	topics      map[string]map[chan []byte]struct{}
	subscribe   chan subscription
	unsubscribe chan subscription
	publish     chan topicMessage
	done        chan struct{}
}

type subscription struct {
	ch    chan []byte
	topic string
}

type topicMessage struct {
	topic string
	msg   []byte
}

func NewHub() *Hub {
	return &Hub{
		topics:      make(map[string]map[chan []byte]struct{}),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		publish:     make(chan topicMessage, 100),
		done:        make(chan struct{}),
	}
}

// Run processes subscriptions and publishes until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-h.subscribe:
			subs, ok := h.topics[s.topic]
			if !ok {
				subs = make(map[chan []byte]struct{})
				h.topics[s.topic] = subs
			}
			subs[s.ch] = struct{}{}
		case s := <-h.unsubscribe:
			if subs, ok := h.topics[s.topic]; ok {
				delete(subs, s.ch)
				if len(subs) == 0 {
					delete(h.topics, s.topic)
				}
			}
			close(s.ch)
		case tm := <-h.publish:
			for ch := range h.topics[tm.topic] {
				select {
				case ch <- tm.msg:
				default:
				}
			}
		}
	}
}

func (h *Hub) Publish(ctx context.Context, topic string, msg []byte) error {
	select {
	case h.publish <- topicMessage{topic: topic, msg: msg}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return context.Canceled
	}
}

// Subscribe registers a buffered channel for topic. The returned cancel
// func unsubscribes and closes the channel.
func (h *Hub) Subscribe(topic string) (<-chan []byte, func()) {
	ch := make(chan []byte, 16)
	select {
	case h.subscribe <- subscription{ch: ch, topic: topic}:
	case <-h.done:
		close(ch)
		return ch, func() {}
	}
	return ch, func() {
		select {
		case h.unsubscribe <- subscription{ch: ch, topic: topic}:
		case <-h.done:
		}
	}
}

// Event is the payload pushed to browsers when their session changes.
type Event struct {
	Type      string         `json:"type"`
	Phase     workflow.Phase `json:"phase"`
	InFlight  bool           `json:"in_flight"`
	HasResult bool           `json:"has_result"`
	Error     string         `json:"error,omitempty"`
	Epoch     uint64         `json:"epoch"`
}

// Notifier publishes workflow completions on a Broker.
type Notifier struct {
	broker Broker
	log    zerolog.Logger
}

func NewNotifier(broker Broker, log zerolog.Logger) *Notifier {
	return &Notifier{broker: broker, log: log}
}

// NewEvent summarises st for subscribers.
func NewEvent(st *workflow.State) Event {
	return Event{
		Type:      "state",
		Phase:     st.Phase(),
		InFlight:  st.InFlight,
		HasResult: st.Result != nil,
		Error:     st.Error,
		Epoch:     st.Epoch,
	}
}

func (n *Notifier) Notify(ctx context.Context, sessionID string, st *workflow.State) {
	msg, err := json.Marshal(NewEvent(st))
	if err != nil {
		n.log.Error().Err(err).Msg("encode session event")
		return
	}
	if err := n.broker.Publish(ctx, sessionID, msg); err != nil {
		n.log.Warn().Err(err).Str("session", sessionID).Msg("publish session event")
	}
}
