package spark

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sparkplay/dominion-server-go/internal/game"
)

// Sender posts one message.
type Sender interface {
	CreateMessage(ctx context.Context, out OutgoingMessage) (*Message, error)
}

// Outbox queues game notifications and delivers them in order from a single
// worker. Notify never blocks; when the queue is full the notification is dropped.
type Outbox struct {
	sender  Sender
	queue   chan game.Notification
	logger  *zap.Logger
	done    chan struct{}
	dropped atomic.Int64
	unsent  atomic.Int64 // queued plus in flight
}

var _ game.Notifier = (*Outbox)(nil)

// NewOutbox creates an outbox with room for size queued notifications.
func NewOutbox(sender Sender, size int, logger *zap.Logger) *Outbox {
	if size <= 0 {
		size = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Outbox{
		sender: sender,
		queue:  make(chan game.Notification, size),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Notify enqueues a notification.
func (o *Outbox) Notify(n game.Notification) {
	o.unsent.Add(1)
	select {
	case o.queue <- n:
	default:
		o.unsent.Add(-1)
		o.dropped.Add(1)
		o.logger.Warn("outbox full, dropping notification",
			zap.String("target", n.Target),
			zap.Bool("direct", n.Direct),
		)
	}
}

// Dropped returns how many notifications were discarded because the queue was full.
func (o *Outbox) Dropped() int64 {
	return o.dropped.Load()
}

// Pending returns the number of notifications not yet delivered, including
// one that is being sent right now.
func (o *Outbox) Pending() int {
	return int(o.unsent.Load())
}

// Done is closed when Run returns.
func (o *Outbox) Done() <-chan struct{} {
	return o.done
}

// Run delivers queued notifications until ctx is cancelled. A delivery that is
// under way when ctx ends still completes; Run must be called once.
func (o *Outbox) Run(ctx context.Context) error {
	defer close(o.done)
	sendCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-o.queue:
			o.deliver(sendCtx, n)
			o.unsent.Add(-1)
		}
	}
}

// Drain waits until every queued notification has been delivered or ctx ends.
func (o *Outbox) Drain(ctx context.Context) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for o.Pending() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-o.done:
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

func (o *Outbox) deliver(ctx context.Context, n game.Notification) {
	out := OutgoingMessage{}
	if n.Direct {
		out.ToPersonID = n.Target
	} else {
		out.RoomID = n.Target
	}
	if n.Markdown {
		out.Markdown = n.Text
	} else {
		out.Text = n.Text
	}

	if _, err := o.sender.CreateMessage(ctx, out); err != nil {
		o.logger.Error("failed to deliver notification",
			zap.String("target", n.Target),
			zap.Bool("direct", n.Direct),
			zap.Error(err),
		)
	}
}
