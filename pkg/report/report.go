package report

import (
	"sync"
	"time"
)

// Event is one reported promise outcome. Result holds the string form
// of a dispatch.PromiseResult (kept as a plain string here, rather
// than importing pkg/dispatch, so the two packages can depend on each
// other's concerns -- a "reports" actuator publishing through this
// broker -- without an import cycle).
type Event struct {
	ID        string
	Bundle    string
	Promiser  string
	TypeName  string
	Result    string
	Timestamp time.Time
	Message   string
	Metadata  map[string]string
}

// Subscriber is a channel that receives reported events.
type Subscriber chan *Event

// Broker distributes Events to every current Subscriber. Publish is
// non-blocking: a subscriber whose buffer is full simply misses the
// event rather than stalling promise evaluation.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]bool

	eventCh chan *Event
	stopCh  chan struct{}
}

// NewBroker returns a broker that is not yet running; call Start.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's distribution loop in a background
// goroutine.
func (b *Broker) Start() {
	go b.run()
}

// Stop halts the distribution loop. Published events still queued at
// the time of Stop are dropped.
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe registers a new subscriber and returns its channel. The
// caller must Unsubscribe when done to release the channel.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes sub and closes its channel.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[sub]; !ok {
		return
	}
	delete(b.subscribers, sub)
	close(sub)
}

// Publish hands event to the broker's distribution loop, stamping
// Timestamp if the caller left it zero. Publish itself never blocks on
// a subscriber; it only blocks if the broker's own internal buffer (100
// events) is momentarily full.
func (b *Broker) Publish(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}

// SubscriberCount reports the number of currently registered
// subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
