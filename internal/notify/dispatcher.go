package notify

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-safety-training/internal/achievement"
	"github.com/couchcryptid/storm-safety-training/internal/observability"
)

// DefaultCapacity is the feed size used when none is configured.
const DefaultCapacity = 20

// Escalator receives high and critical notifications after they are pushed.
type Escalator interface {
	Escalate(ctx context.Context, n Notification) error
}

// EscalatorFunc adapts a function to Escalator.
type EscalatorFunc func(ctx context.Context, n Notification) error

func (f EscalatorFunc) Escalate(ctx context.Context, n Notification) error { return f(ctx, n) }

// Options configures a Dispatcher.
type Options struct {
	Capacity  int
	Clock     clockwork.Clock
	Escalator Escalator
	Logger    *slog.Logger
	Metrics   *observability.Metrics
}

// Dispatcher is the most-recent-first notification feed. It is safe for
// concurrent use.
type Dispatcher struct {
	capacity  int
	clock     clockwork.Clock
	escalator Escalator
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu    sync.Mutex
	items []Notification // newest first
}

// NewDispatcher creates an empty feed.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Dispatcher{
		capacity:  opts.Capacity,
		clock:     opts.Clock,
		escalator: opts.Escalator,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
}

// Push adds n to the top of the feed and returns the stored copy. A retained
// entry with the same key is replaced. When the feed is over capacity the
// oldest non-sticky entry is evicted.
func (d *Dispatcher) Push(ctx context.Context, n Notification) Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = d.clock.Now().UTC()
	}
	if n.Severity == "" {
		n.Severity = SeverityLow
	}
	if n.Severity == SeverityCritical {
		n.Sticky = true
	}

	d.mu.Lock()
	if n.Key != "" {
		d.items = slices.DeleteFunc(d.items, func(existing Notification) bool {
			return existing.Key == n.Key
		})
	}
	d.items = slices.Insert(d.items, 0, n)
	for len(d.items) > d.capacity {
		i := d.evictIndex()
		d.items = slices.Delete(d.items, i, i+1)
	}
	unread := d.unreadLocked()
	d.mu.Unlock()

	d.logger.Debug("notification pushed", "id", n.ID, "kind", n.Kind, "severity", n.Severity, "key", n.Key)
	if d.metrics != nil {
		d.metrics.NotificationsPushed.WithLabelValues(string(n.Severity)).Inc()
		d.metrics.FeedUnread.Set(float64(unread))
	}

	if n.Severity.Escalates() && d.escalator != nil {
		if err := d.escalator.Escalate(ctx, n); err != nil {
			d.logger.Warn("escalation failed", "id", n.ID, "severity", n.Severity, "error", err)
		}
	}
	return n
}

// evictIndex picks the oldest non-sticky entry, falling back to the oldest.
func (d *Dispatcher) evictIndex() int {
	for i := len(d.items) - 1; i >= 0; i-- {
		if !d.items[i].Sticky {
			return i
		}
	}
	return len(d.items) - 1
}

// MarkRead marks one notification read. Unknown ids are ignored.
func (d *Dispatcher) MarkRead(id string) {
	d.update(func() {
		for i := range d.items {
			if d.items[i].ID == id {
				d.items[i].IsRead = true
				return
			}
		}
	})
}

// MarkAllRead marks every retained notification read.
func (d *Dispatcher) MarkAllRead() {
	d.update(func() {
		for i := range d.items {
			d.items[i].IsRead = true
		}
	})
}

// Dismiss removes a notification, including sticky ones. Unknown ids are
// ignored.
func (d *Dispatcher) Dismiss(id string) {
	d.update(func() {
		d.items = slices.DeleteFunc(d.items, func(n Notification) bool { return n.ID == id })
	})
}

func (d *Dispatcher) update(fn func()) {
	d.mu.Lock()
	fn()
	unread := d.unreadLocked()
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.FeedUnread.Set(float64(unread))
	}
}

// Items returns a snapshot of the feed, newest first.
func (d *Dispatcher) Items() []Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.items)
}

// Unread counts unread retained notifications.
func (d *Dispatcher) Unread() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unreadLocked()
}

func (d *Dispatcher) unreadLocked() int {
	n := 0
	for _, item := range d.items {
		if !item.IsRead {
			n++
		}
	}
	return n
}

// Surfaced returns the sticky notifications that have not been dismissed.
func (d *Dispatcher) Surfaced() []Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := []Notification{}
	for _, item := range d.items {
		if item.Sticky {
			out = append(out, item)
		}
	}
	return out
}

// AnnounceBadge pushes a badge notification. It lets the dispatcher serve as
// the achievement engine's announcer.
func (d *Dispatcher) AnnounceBadge(ctx context.Context, learnerID string, b achievement.Badge) {
	d.Push(ctx, FromBadge(learnerID, b))
}

var _ achievement.Announcer = (*Dispatcher)(nil)
