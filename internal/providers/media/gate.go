package media

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrDenied  = errors.New("microphone access denied by user")
	ErrPending = errors.New("microphone request already pending")
)

// Gate turns the browser's getUserMedia prompt into a blocking Acquire. Ask delivers the
// prompt to the page; the page's answer comes back through Resolve.
type Gate struct {
	ask func() error

	mu      sync.Mutex
	waiting chan bool
}

func NewGate(ask func() error) *Gate {
	return &Gate{ask: ask}
}

func (g *Gate) Acquire(ctx context.Context) error {
	g.mu.Lock()
	if g.waiting != nil {
		g.mu.Unlock()
		return ErrPending
	}
	ch := make(chan bool, 1)
	g.waiting = ch
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		if g.waiting == ch {
			g.waiting = nil
		}
		g.mu.Unlock()
	}()

	if err := g.ask(); err != nil {
		return err
	}

	select {
	case granted := <-ch:
		if !granted {
			return ErrDenied
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Resolve answers the pending request. It reports false when nothing was waiting.
func (g *Gate) Resolve(granted bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.waiting == nil {
		return false
	}
	select {
	case g.waiting <- granted:
	default:
		return false
	}
	return true
}
