package gateway

import (
	"context"
	"time"

	"github.com/user/schemabot/internal/types"
)

// RunStatus represents the lifecycle state of a Run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run tracks the handling of a single inbound message within a session.
// OnComplete delivers the reply text back to the transport; it is dropped,
// never called, if the session's lane closed while the run was in flight.
type Run struct {
	ID         types.RunID
	SessionID  types.SessionID
	Message    *types.InboundMessage
	Status     RunStatus
	CreatedAt  time.Time
	Ctx        context.Context
	OnComplete func(reply string)
}

// NewRun creates a Run in the Queued state for the given session and message.
func NewRun(sessionID types.SessionID, msg *types.InboundMessage) *Run {
	return &Run{
		ID:        types.NewRunID(),
		SessionID: sessionID,
		Message:   msg,
		Status:    RunStatusQueued,
		CreatedAt: time.Now(),
	}
}
