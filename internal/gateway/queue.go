package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/user/schemabot/internal/types"
)

// Queue manages per-session lanes with a global concurrency semaphore.
// Each session gets its own FIFO channel (lane): the reply to message N is
// produced before message N+1 is picked up, while the semaphore bounds the
// total number of concurrent processors across all sessions. Independent
// sessions have no ordering relationship to each other.
type Queue struct {
	lanes     map[types.SessionID]*lane
	semaphore *semaphore.Weighted
	processor func(*Run) error
	active    atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
}

// lane is one session's FIFO channel plus a liveness marker. closed is
// closed together with ch so a run still in flight can tell that its
// session ended and its reply must be dropped.
type lane struct {
	ch     chan *Run
	closed chan struct{}
}

const laneBuffer = 100

// NewQueue creates a Queue that allows up to maxConcurrent runs to execute
// simultaneously across all session lanes.
func NewQueue(maxConcurrent int64) *Queue {
	return &Queue{
		lanes:     make(map[types.SessionID]*lane),
		semaphore: semaphore.NewWeighted(maxConcurrent),
	}
}

// Start initialises the queue's context. Must be called before Enqueue.
func (q *Queue) Start(ctx context.Context) {
	q.ctx, q.cancel = context.WithCancel(ctx)
}

// Stop cancels the queue context, closes all lanes, and waits for in-flight
// processors to finish. Replies produced after Stop are discarded.
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.mu.Lock()
	for _, ln := range q.lanes {
		close(ln.ch)
		close(ln.closed)
	}
	q.lanes = make(map[types.SessionID]*lane)
	q.mu.Unlock()
	q.wg.Wait()
}

// Enqueue adds a Run to its session's lane, creating the lane (and its
// goroutine) on first use. Returns an error if the lane's buffer is full.
func (q *Queue) Enqueue(run *Run) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	ln, exists := q.lanes[run.SessionID]
	if !exists {
		ln = &lane{
			ch:     make(chan *Run, laneBuffer),
			closed: make(chan struct{}),
		}
		q.lanes[run.SessionID] = ln
		q.wg.Add(1)
		go q.processLane(run.SessionID, ln)
	}

	select {
	case ln.ch <- run:
		return nil
	default:
		return fmt.Errorf("queue full for session %s", run.SessionID)
	}
}

// CloseLane removes a session's lane once the transport has ended the
// session. A run still in flight finishes or is abandoned; its reply is
// never delivered to the closed session.
func (q *Queue) CloseLane(sessionID types.SessionID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if ln, ok := q.lanes[sessionID]; ok {
		close(ln.ch)
		close(ln.closed)
		delete(q.lanes, sessionID)
	}
}

// processLane drains a single session lane, acquiring a semaphore slot
// before running the processor synchronously. Strict FIFO within the lane.
func (q *Queue) processLane(sessionID types.SessionID, ln *lane) {
	defer q.wg.Done()
	for {
		select {
		case run, ok := <-ln.ch:
			if !ok {
				return
			}
			if err := q.semaphore.Acquire(q.ctx, 1); err != nil {
				return
			}
			if q.processor != nil {
				q.active.Add(1)
				run.Ctx = q.ctx
				run.Status = RunStatusRunning
				guardOnComplete(run, ln)
				if err := q.processor(run); err != nil {
					run.Status = RunStatusFailed
					slog.Error("run failed",
						"run_id", string(run.ID),
						"session_id", string(run.SessionID),
						"error", err)
					if run.OnComplete != nil {
						run.OnComplete("Sorry, something went wrong processing your message.")
					}
				} else {
					run.Status = RunStatusComplete
				}
				q.active.Add(-1)
			}
			q.semaphore.Release(1)
		case <-q.ctx.Done():
			return
		}
	}
}

// guardOnComplete wraps the run's completion callback so the reply is
// dropped when the lane closed while the run was in flight.
func guardOnComplete(run *Run, ln *lane) {
	cb := run.OnComplete
	if cb == nil {
		return
	}
	run.OnComplete = func(reply string) {
		select {
		case <-ln.closed:
			slog.Debug("reply dropped, session ended",
				"run_id", string(run.ID),
				"session_id", string(run.SessionID))
		default:
			cb(reply)
		}
	}
}

// WaitIdle blocks until no runs are actively being processed, or the timeout
// expires. Returns true if idle, false if timed out.
func (q *Queue) WaitIdle(timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if q.active.Load() == 0 {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// SetProcessor sets the function invoked for each dequeued Run.
func (q *Queue) SetProcessor(fn func(*Run) error) {
	q.processor = fn
}
