package cart

import (
	"sort"
	"sync"
	"time"

	"github.com/MarcGrol/storefront/lib/mytime"
)

const DefaultNotificationTTL = 3 * time.Second

// Notifier holds at most one live notification. Each notification clears itself after the ttl
// unless a newer one replaced it first.
//
// Subscribers are called one change at a time, in generation order; a change that was already
// superseded when its turn comes is skipped. Subscribers must not call Set or Dismiss.
type Notifier struct {
	sync.Mutex
	timer       mytime.Timer
	ttl         time.Duration
	current     *Notification
	generation  uint64
	pending     mytime.Stopper
	subscribers map[int]func(*Notification)
	nextID      int
	closed      bool

	delivery  sync.Mutex
	delivered uint64
}

func NewNotifier(timer mytime.Timer, ttl time.Duration) *Notifier {
	if ttl <= 0 {
		ttl = DefaultNotificationTTL
	}
	return &Notifier{
		timer:       timer,
		ttl:         ttl,
		subscribers: map[int]func(*Notification){},
	}
}

// Set replaces the live notification and restarts the expiry timer.
func (n *Notifier) Set(notification Notification) {
	n.replace(notification)
	n.deliver()
}

// replace changes the live notification without informing subscribers. The store calls it while
// holding its own lock so notifications follow the order of the mutations; deliver follows.
func (n *Notifier) replace(notification Notification) {
	n.Lock()
	defer n.Unlock()

	if n.closed {
		return
	}
	n.stopPendingLocked()
	n.generation++
	generation := n.generation
	n.current = &notification
	n.pending = n.timer.AfterFunc(n.ttl, func() {
		n.expire(generation)
	})
}

// deliver hands the latest change to the subscribers unless it has been delivered already.
func (n *Notifier) deliver() {
	n.delivery.Lock()
	defer n.delivery.Unlock()

	n.Lock()
	if n.generation <= n.delivered {
		n.Unlock()
		return
	}
	n.delivered = n.generation
	current := n.current
	subscribers := n.subscribersLocked()
	n.Unlock()

	for _, fn := range subscribers {
		fn(copyOf(current))
	}
}

func (n *Notifier) Current() *Notification {
	n.Lock()
	defer n.Unlock()

	return copyOf(n.current)
}

func (n *Notifier) Dismiss() {
	n.Lock()
	if n.current == nil {
		n.Unlock()
		return
	}
	n.stopPendingLocked()
	n.generation++
	n.current = nil
	n.Unlock()

	n.deliver()
}

// Subscribe registers fn for every change, including the clear which is delivered as nil.
func (n *Notifier) Subscribe(fn func(*Notification)) func() {
	n.Lock()
	defer n.Unlock()

	n.nextID++
	id := n.nextID
	n.subscribers[id] = fn

	return func() {
		n.Lock()
		defer n.Unlock()

		delete(n.subscribers, id)
	}
}

// Close cancels the expiry timer. The live notification, if any, stays readable.
func (n *Notifier) Close() {
	n.Lock()
	defer n.Unlock()

	n.closed = true
	n.stopPendingLocked()
	n.generation++
}

func (n *Notifier) expire(generation uint64) {
	n.Lock()
	if generation != n.generation || n.current == nil {
		// replaced or dismissed in the meantime
		n.Unlock()
		return
	}
	n.current = nil
	n.pending = nil
	n.Unlock()

	n.deliver()
}

func (n *Notifier) stopPendingLocked() {
	if n.pending != nil {
		n.pending.Stop()
		n.pending = nil
	}
}

func (n *Notifier) subscribersLocked() []func(*Notification) {
	ids := make([]int, 0, len(n.subscribers))
	for id := range n.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	subscribers := make([]func(*Notification), 0, len(ids))
	for _, id := range ids {
		subscribers = append(subscribers, n.subscribers[id])
	}
	return subscribers
}

func copyOf(notification *Notification) *Notification {
	if notification == nil {
		return nil
	}
	cpy := *notification
	if notification.Count != nil {
		count := *notification.Count
		cpy.Count = &count
	}
	if notification.Product != nil {
		product := *notification.Product
		cpy.Product = &product
	}
	return &cpy
}
