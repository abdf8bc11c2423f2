package spark

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sparkplay/dominion-server-go/internal/game"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []OutgoingMessage
	fail bool
}

func (f *fakeSender) CreateMessage(_ context.Context, out OutgoingMessage) (*Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, out)
	if f.fail {
		return nil, errors.New("boom")
	}
	return &Message{ID: "m"}, nil
}

func (f *fakeSender) messages() []OutgoingMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]OutgoingMessage(nil), f.sent...)
}

func TestOutboxDeliversInOrder(t *testing.T) {
	sender := &fakeSender{}
	o := NewOutbox(sender, 8, zaptest.NewLogger(t))

	o.Notify(game.Notification{Target: "room1", Text: "first"})
	o.Notify(game.Notification{Target: "bob", Text: "secret", Direct: true})
	o.Notify(game.Notification{Target: "room1", Text: "**bold**", Markdown: true})
	assert.Equal(t, 3, o.Pending())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	require.Eventually(t, func() bool { return len(sender.messages()) == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	sent := sender.messages()
	assert.Equal(t, OutgoingMessage{RoomID: "room1", Text: "first"}, sent[0])
	assert.Equal(t, OutgoingMessage{ToPersonID: "bob", Text: "secret"}, sent[1])
	assert.Equal(t, OutgoingMessage{RoomID: "room1", Markdown: "**bold**"}, sent[2])
}

func TestOutboxDropsWhenFull(t *testing.T) {
	o := NewOutbox(&fakeSender{}, 1, zaptest.NewLogger(t))
	o.Notify(game.Notification{Target: "room1", Text: "kept"})
	o.Notify(game.Notification{Target: "room1", Text: "dropped"})

	assert.Equal(t, 1, o.Pending())
	assert.Equal(t, int64(1), o.Dropped())
}

func TestOutboxSurvivesDeliveryErrors(t *testing.T) {
	sender := &fakeSender{fail: true}
	o := NewOutbox(sender, 4, zaptest.NewLogger(t))
	o.Notify(game.Notification{Target: "room1", Text: "a"})
	o.Notify(game.Notification{Target: "room1", Text: "b"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	require.Eventually(t, func() bool { return len(sender.messages()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

type blockingSender struct {
	started chan struct{}
	release chan struct{}
	mu      sync.Mutex
	ctxErrs []error
}

func (b *blockingSender) CreateMessage(ctx context.Context, _ OutgoingMessage) (*Message, error) {
	b.started <- struct{}{}
	<-b.release
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ctxErrs = append(b.ctxErrs, ctx.Err())
	return &Message{ID: "m"}, nil
}

func TestOutboxFinishesDeliveryOnShutdown(t *testing.T) {
	sender := &blockingSender{started: make(chan struct{}, 1), release: make(chan struct{})}
	o := NewOutbox(sender, 4, zaptest.NewLogger(t))
	o.Notify(game.Notification{Target: "room1", Text: "last words"})

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = o.Run(ctx) }()

	<-sender.started
	assert.Equal(t, 1, o.Pending(), "the message in flight is still pending")

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer drainCancel()
	assert.ErrorIs(t, o.Drain(drainCtx), context.DeadlineExceeded)

	cancel()
	close(sender.release)
	select {
	case <-o.Done():
	case <-time.After(time.Second):
		t.Fatal("outbox did not stop")
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Len(t, sender.ctxErrs, 1)
	assert.NoError(t, sender.ctxErrs[0], "delivery is not cancelled with the worker")
	assert.Equal(t, 0, o.Pending())
}

func TestOutboxDrain(t *testing.T) {
	sender := &fakeSender{}
	o := NewOutbox(sender, 8, zaptest.NewLogger(t))
	for i := 0; i < 5; i++ {
		o.Notify(game.Notification{Target: "room1", Text: "hi"})
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		<-o.Done()
	})
	go func() { _ = o.Run(ctx) }()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), time.Second)
	defer drainCancel()
	require.NoError(t, o.Drain(drainCtx))
	assert.Len(t, sender.messages(), 5)
	assert.Equal(t, 0, o.Pending())
}
