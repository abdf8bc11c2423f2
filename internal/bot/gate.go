package bot

import (
	"sync/atomic"

	"github.com/sparkplay/dominion-server-go/internal/game"
)

// Gate forwards notifications unless muted. Sessions keep the gate they were
// created with, so muting it silences games rebuilt from the command log
// without cutting them off once they go live.
type Gate struct {
	next  game.Notifier
	muted atomic.Bool
}

var _ game.Notifier = (*Gate)(nil)

// NewGate wraps next.
func NewGate(next game.Notifier) *Gate {
	if next == nil {
		next = game.Discard
	}
	return &Gate{next: next}
}

func (g *Gate) Notify(n game.Notification) {
	if g.muted.Load() {
		return
	}
	g.next.Notify(n)
}

// Mute stops delivery and returns a func that resumes it.
func (g *Gate) Mute() (resume func()) {
	g.muted.Store(true)
	return func() { g.muted.Store(false) }
}

// Muted reports whether delivery is stopped.
func (g *Gate) Muted() bool {
	return g.muted.Load()
}
