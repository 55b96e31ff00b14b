// Package gateway orders inbound chat messages into per-session runs.
package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/user/schemabot/internal/types"
)

// Gateway resolves the session for each inbound message, wraps the message
// in a Run, and enqueues it on the session's lane.
type Gateway struct {
	sessions types.SessionStore
	Queue    *Queue

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Gateway wired to the session store with the given
// concurrency limit for simultaneous run processing.
func New(sessions types.SessionStore, maxConcurrent int64) *Gateway {
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	return &Gateway{
		sessions: sessions,
		Queue:    NewQueue(maxConcurrent),
	}
}

// Start initialises the gateway's context and starts the internal queue.
func (g *Gateway) Start(ctx context.Context) {
	g.ctx, g.cancel = context.WithCancel(ctx)
	g.Queue.Start(g.ctx)
}

// Stop cancels the gateway context, stops the queue, and waits for any
// outstanding work to finish.
func (g *Gateway) Stop() {
	if g.cancel != nil {
		g.cancel()
	}
	g.Queue.Stop()
	g.wg.Wait()
}

// RunOption configures optional behavior on a Run.
type RunOption func(*Run)

// WithOnComplete sets the callback that delivers the reply text.
func WithOnComplete(fn func(string)) RunOption {
	return func(r *Run) { r.OnComplete = fn }
}

// HandleInbound resolves the session for the message, wraps it in a Run,
// and enqueues it for in-order processing.
func (g *Gateway) HandleInbound(ctx context.Context, msg *types.InboundMessage, opts ...RunOption) error {
	session, _, err := g.sessions.ResolveOrCreate(ctx, msg.SessionKey)
	if err != nil {
		return fmt.Errorf("resolve session: %w", err)
	}
	run := NewRun(session.ID, msg)
	for _, opt := range opts {
		opt(run)
	}
	return g.Queue.Enqueue(run)
}

// EndSession closes the session's lane and discards its context. No reply
// is delivered to a session after this returns.
func (g *Gateway) EndSession(ctx context.Context, id types.SessionID) error {
	g.Queue.CloseLane(id)
	return g.sessions.End(ctx, id)
}
