// Package dispatch owns the per-session conversation contract: the welcome
// table listing at session start, then per-message routing between schema
// retrieval and echo. No error here ever terminates a session; every failure
// path ends in a user-visible message and the session accepts the next
// message.
package dispatch

import (
	"context"
	"log/slog"

	"github.com/user/schemabot/internal/gateway"
	"github.com/user/schemabot/internal/types"
)

// Dispatcher drives the Metadata Service from chat input. The schema lookup
// target is fixed by configuration, not user-supplied, so chat users cannot
// probe arbitrary tables.
type Dispatcher struct {
	catalog  types.Catalog
	sessions types.SessionStore
	table    types.TableRef
	trigger  string
}

// New creates a Dispatcher that describes table on the exact trigger token
// and echoes everything else.
func New(catalog types.Catalog, sessions types.SessionStore, table types.TableRef, trigger string) *Dispatcher {
	return &Dispatcher{
		catalog:  catalog,
		sessions: sessions,
		table:    table,
		trigger:  trigger,
	}
}

// StartSession resolves (or creates) the session, lists the tables visible
// to the identity, caches the listing on the session, and returns the
// welcome messages. The transport must deliver these before feeding any
// inbound message for the session. A listing failure degrades the welcome
// but never fails the start: echo still works afterwards.
func (d *Dispatcher) StartSession(ctx context.Context, key types.SessionKey) (*types.SessionContext, []string, error) {
	session, created, err := d.sessions.ResolveOrCreate(ctx, key)
	if err != nil {
		return nil, nil, err
	}

	refs, err := d.catalog.ListTables(ctx)
	if err != nil {
		slog.Warn("table listing failed, starting degraded",
			"session_id", string(session.ID), "created", created, "error", err)
		session.Degraded = true
		session.Listing = nil
		return session, []string{RenderDegradedWelcome(err)}, nil
	}

	session.Degraded = false
	session.Listing = refs
	if err := d.sessions.Update(ctx, session); err != nil {
		return nil, nil, err
	}
	return session, []string{RenderWelcome(refs, d.trigger, d.table)}, nil
}

// HandleMessage routes one inbound message and returns the reply text.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg *types.InboundMessage) string {
	intent := ParseIntent(msg.Text, d.trigger)
	switch intent.Kind {
	case IntentDescribe:
		meta, err := d.catalog.DescribeTable(ctx, d.table)
		if err != nil {
			slog.Warn("describe table failed",
				"table", d.table.String(), "session_key", string(msg.SessionKey), "error", err)
			return RenderError(err)
		}
		return RenderTableMeta(meta)
	default:
		return intent.Text
	}
}

// ProcessRun adapts HandleMessage to the gateway queue. This is the function
// passed to Queue.SetProcessor.
func (d *Dispatcher) ProcessRun(run *gateway.Run) error {
	ctx := run.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	reply := d.HandleMessage(ctx, run.Message)
	if run.OnComplete != nil {
		run.OnComplete(reply)
	}
	return nil
}
