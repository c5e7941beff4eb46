package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/arabicbase/arabicbase/internal/id"
	"github.com/arabicbase/arabicbase/internal/logger"
	"github.com/arabicbase/arabicbase/internal/metrics"
)

const (
	brokerBuffer     = 1000
	subscriberBuffer = 100
)

// Subscriber receives events on C until it is unsubscribed or the broker
// shuts down, at which point Done is closed.
type Subscriber struct {
	SubscribedAt time.Time
	C            chan Event
	Done         chan struct{}
	ID           string
	// UserID filters delivery to events for that user plus broadcasts.
	// Empty receives everything.
	UserID string
}

// Broker fans events out to subscribers. Publish never blocks: a full
// broker buffer or a slow subscriber drops the event.
type Broker struct {
	subscribers       map[string]*Subscriber
	events            chan Event
	metrics           *metrics.Metrics
	logger            *slog.Logger
	wg                sync.WaitGroup
	heartbeatInterval time.Duration
	mu                sync.RWMutex

	shutdownMu sync.RWMutex
	shutdown   bool
}

// NewBroker creates a broker. Call Start to begin delivery.
func NewBroker(m *metrics.Metrics, log *slog.Logger) *Broker {
	return &Broker{
		subscribers:       make(map[string]*Subscriber),
		events:            make(chan Event, brokerBuffer),
		metrics:           m,
		logger:            logger.Component(log, "events"),
		heartbeatInterval: 30 * time.Second,
	}
}

// Start runs the delivery loop until ctx is canceled or Shutdown is called.
// It blocks; run it in its own goroutine.
func (b *Broker) Start(ctx context.Context) {
	b.wg.Add(1)
	defer b.wg.Done()

	heartbeat := time.NewTicker(b.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case event, ok := <-b.events:
			if !ok {
				return
			}
			b.broadcast(event)

		case <-heartbeat.C:
			b.broadcast(NewHeartbeatEvent())

		case <-ctx.Done():
			b.closeAll()
			return
		}
	}
}

// Shutdown stops accepting events, delivers what is buffered, and closes
// every subscriber.
func (b *Broker) Shutdown(ctx context.Context) error {
	b.shutdownMu.Lock()
	if b.shutdown {
		b.shutdownMu.Unlock()
		return nil
	}
	b.shutdown = true
	close(b.events)
	b.shutdownMu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
		b.logger.Warn("event drain timed out, some events may be lost")
	}

	// The loop may never have been started.
	for event := range b.events {
		b.broadcast(event)
	}
	b.closeAll()
	return err
}

// Publish queues an event for delivery.
func (b *Broker) Publish(event Event) {
	b.shutdownMu.RLock()
	defer b.shutdownMu.RUnlock()

	if b.shutdown {
		return
	}

	select {
	case b.events <- event:
	default:
		b.metrics.RecordEventDropped()
		b.logger.Error("event buffer full, dropping event",
			slog.String("event_type", string(event.Type)))
	}
}

// Subscribe registers a subscriber for userID.
func (b *Broker) Subscribe(userID string) (*Subscriber, error) {
	subID, err := id.Generate("sub")
	if err != nil {
		return nil, err
	}

	sub := &Subscriber{
		ID:           subID,
		UserID:       userID,
		C:            make(chan Event, subscriberBuffer),
		Done:         make(chan struct{}),
		SubscribedAt: time.Now(),
	}

	b.mu.Lock()
	b.subscribers[sub.ID] = sub
	total := len(b.subscribers)
	b.mu.Unlock()

	b.logger.Debug("subscriber added",
		slog.String("subscriber_id", sub.ID),
		slog.String("user_id", userID),
		slog.Int("total_subscribers", total))
	return sub, nil
}

// Unsubscribe removes a subscriber and closes its channels.
func (b *Broker) Unsubscribe(subID string) {
	b.mu.Lock()
	sub, ok := b.subscribers[subID]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.subscribers, subID)
	total := len(b.subscribers)
	b.mu.Unlock()

	close(sub.Done)
	close(sub.C)

	b.logger.Debug("subscriber removed",
		slog.String("subscriber_id", subID),
		slog.Duration("duration", time.Since(sub.SubscribedAt)),
		slog.Int("total_subscribers", total))
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *Broker) broadcast(event Event) {
	var delivered, dropped, filtered int

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		if event.UserID != "" && sub.UserID != "" && event.UserID != sub.UserID {
			filtered++
			continue
		}

		select {
		case sub.C <- event:
			delivered++
		default:
			dropped++
			b.metrics.RecordEventDropped()
			b.logger.Warn("dropped event for slow subscriber",
				slog.String("subscriber_id", sub.ID),
				slog.String("event_type", string(event.Type)))
		}
	}

	if event.Type != Heartbeat {
		b.logger.Debug("event broadcast",
			slog.String("event_type", string(event.Type)),
			slog.Group("stats",
				slog.Int("delivered", delivered),
				slog.Int("filtered", filtered),
				slog.Int("dropped", dropped)))
	}
}

func (b *Broker) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subID, sub := range b.subscribers {
		close(sub.Done)
		close(sub.C)
		delete(b.subscribers, subID)
	}
}
