// Package realtime fans lobby and per-player events out to connected clients.
package realtime

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/mcoot/wagerlobby/internal/dependencies/clock"
	"github.com/mcoot/wagerlobby/internal/model"
)

// ErrBrokerClosed is returned when subscribing to a stopped broker
var ErrBrokerClosed = errors.New("event broker closed")

// Config holds broker buffer sizes
type Config struct {
	// ClientBuffer is the per-subscription outbound queue depth
	ClientBuffer int
	// PublishBuffer is the depth of the queue feeding the broker loop
	PublishBuffer int
}

// DefaultConfig returns default broker configuration
func DefaultConfig() Config {
	return Config{
		ClientBuffer:  64,
		PublishBuffer: 256,
	}
}

// SnapshotFunc hands join the event that greets a new subscriber. A source
// that publishes under its own lock calls join while holding it, so the
// greeting lands in the queue after every event describing older state.
type SnapshotFunc func(join func(model.Event))

// Subscription is one connection's view of the broker: the lobby topic
// plus the direct topic of the connected player
type Subscription struct {
	ID          string
	PlayerID    model.PlayerID
	ConnectedAt time.Time
	send        chan model.Event
}

// Events returns the ordered stream of events for this connection.
// The channel is closed when the subscription ends.
func (s *Subscription) Events() <-chan model.Event {
	return s.send
}

type delivery struct {
	target model.PlayerID // empty for the lobby topic
	event  model.Event

	// join registers a subscriber at this point in the stream, greeting it
	// with event when greet is set
	join  *Subscription
	greet bool
	leave *Subscription
}

// Broker routes events to subscriptions. All delivery happens on the Run
// loop, so every subscription sees events in publication order.
type Broker struct {
	clock        clock.Clock
	logger       *slog.Logger
	clientBuffer int

	mu       sync.RWMutex
	subs     map[*Subscription]bool
	snapshot SnapshotFunc
	seq      uint64

	memberMu sync.RWMutex
	closed bool

	publish    chan delivery
	done       chan struct{}
	stopped    chan struct{}
	closeOnce  sync.Once
}

// NewBroker creates a new Broker. Subscriptions queue until Run is started.
func NewBroker(cfg Config, clk clock.Clock, logger *slog.Logger) *Broker {
	if cfg.ClientBuffer <= 0 {
		cfg.ClientBuffer = DefaultConfig().ClientBuffer
	}
	if cfg.PublishBuffer <= 0 {
		cfg.PublishBuffer = DefaultConfig().PublishBuffer
	}
	return &Broker{
		clock:        clk,
		logger:       logger.With(slog.String("component", "broker")),
		clientBuffer: cfg.ClientBuffer,
		subs:         make(map[*Subscription]bool),
		publish:      make(chan delivery, cfg.PublishBuffer),
		done:         make(chan struct{}),
		stopped:      make(chan struct{}),
	}
}

// SetSnapshot installs the function used to greet new subscribers
func (b *Broker) SetSnapshot(fn SnapshotFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshot = fn
}

// Run starts the broker's event loop and blocks until Close is called
func (b *Broker) Run() {
	defer close(b.stopped)
	b.logger.Info("event broker started")

	for {
		select {
		case d := <-b.publish:
			switch {
			case d.join != nil:
				b.add(d)
			case d.leave != nil:
				b.remove(d.leave)
			default:
				b.dispatch(d)
			}

		case <-b.done:
			b.memberMu.Lock()
			b.closed = true
			b.memberMu.Unlock()

			b.mu.Lock()
			count := len(b.subs)
			for sub := range b.subs {
				close(sub.send)
				delete(b.subs, sub)
			}
			b.mu.Unlock()
			b.dropPending()
			b.logger.Info("event broker stopped", slog.Int("disconnected_subscribers", count))
			return
		}
	}
}

func (b *Broker) add(d delivery) {
	sub := d.join
	b.mu.Lock()
	b.subs[sub] = true
	count := len(b.subs)
	b.mu.Unlock()

	if d.greet {
		b.deliverTo(sub, b.stamp(d.event))
	}
	b.logger.Info("subscriber registered",
		slog.String("subscription_id", sub.ID),
		slog.String("player_id", string(sub.PlayerID)),
		slog.Int("total_subscribers", count))
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	if _, ok := b.subs[sub]; !ok {
		b.mu.Unlock()
		return
	}
	delete(b.subs, sub)
	close(sub.send)
	count := len(b.subs)
	b.mu.Unlock()

	b.logger.Info("subscriber unregistered",
		slog.String("subscription_id", sub.ID),
		slog.String("player_id", string(sub.PlayerID)),
		slog.Duration("connection_duration", b.clock.Now().Sub(sub.ConnectedAt)),
		slog.Int("total_subscribers", count))
}

// dropPending ends subscriptions still queued when the loop stopped
func (b *Broker) dropPending() {
	for {
		select {
		case d := <-b.publish:
			if d.join != nil {
				close(d.join.send)
			}
		default:
			return
		}
	}
}

func (b *Broker) stamp(evt model.Event) model.Event {
	b.seq++
	evt.Seq = b.seq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = b.clock.Now()
	}
	return evt
}

func (b *Broker) dispatch(d delivery) {
	evt := b.stamp(d.event)

	b.mu.RLock()
	defer b.mu.RUnlock()

	sent, dropped := 0, 0
	for sub := range b.subs {
		if d.target != "" && sub.PlayerID != d.target {
			continue
		}
		if b.deliverTo(sub, evt) {
			sent++
		} else {
			dropped++
		}
	}
	if dropped > 0 {
		b.logger.Warn("event broadcast partial failure",
			slog.String("event_type", string(evt.Type)),
			slog.Int("sent", sent),
			slog.Int("dropped", dropped))
	}
}

func (b *Broker) deliverTo(sub *Subscription, evt model.Event) bool {
	select {
	case sub.send <- evt:
		return true
	default:
		b.logger.Warn("event dropped - subscriber buffer full",
			slog.String("subscription_id", sub.ID),
			slog.String("player_id", string(sub.PlayerID)),
			slog.String("event_type", string(evt.Type)))
		return false
	}
}

// Subscribe registers a connection for the lobby topic and the player's direct topic
func (b *Broker) Subscribe(playerID model.PlayerID) (*Subscription, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	sub := &Subscription{
		ID:          id,
		PlayerID:    playerID,
		ConnectedAt: b.clock.Now(),
		send:        make(chan model.Event, b.clientBuffer),
	}

	b.mu.RLock()
	snapshot := b.snapshot
	b.mu.RUnlock()

	called, joined := false, false
	if snapshot != nil {
		snapshot(func(evt model.Event) {
			if !called {
				called = true
				joined = b.queueMembership(delivery{join: sub, greet: true, event: evt})
			}
		})
	}
	if !called {
		joined = b.queueMembership(delivery{join: sub})
	}
	if !joined {
		return nil, ErrBrokerClosed
	}
	return sub, nil
}

// queueMembership places a registration change on the publish queue.
// Unlike events it waits for room rather than being dropped.
func (b *Broker) queueMembership(d delivery) bool {
	b.memberMu.RLock()
	defer b.memberMu.RUnlock()
	if b.closed {
		return false
	}
	select {
	case b.publish <- d:
		return true
	case <-b.done:
		return false
	}
}

// Unsubscribe removes a subscription and closes its event channel
func (b *Broker) Unsubscribe(sub *Subscription) {
	b.queueMembership(delivery{leave: sub})
}

// PublishLobby queues an event for every subscriber
func (b *Broker) PublishLobby(evt model.Event) {
	b.enqueue(delivery{event: evt})
}

// PublishDirect queues an event for the given player's connections only
func (b *Broker) PublishDirect(playerID model.PlayerID, evt model.Event) {
	if playerID == "" {
		b.logger.Error("direct event without recipient dropped", slog.String("event_type", string(evt.Type)))
		return
	}
	b.enqueue(delivery{target: playerID, event: evt})
}

func (b *Broker) enqueue(d delivery) {
	select {
	case <-b.done:
		return
	default:
	}

	select {
	case b.publish <- d:
	default:
		b.logger.Warn("event dropped - broker buffer full", slog.String("event_type", string(d.event.Type)))
	}
}

// SubscriberCount returns the number of registered subscriptions
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close stops the broker and closes every subscription
func (b *Broker) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
}

// Wait blocks until the Run loop has exited
func (b *Broker) Wait() {
	<-b.stopped
}
