package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/user/schemabot/internal/state"
	"github.com/user/schemabot/internal/types"
)

func TestHandleInboundProcessesAndReplies(t *testing.T) {
	sessions := state.NewSessionStore()
	gw := New(sessions, 2)
	gw.Start(context.Background())
	defer gw.Stop()

	gw.Queue.SetProcessor(func(run *Run) error {
		if run.OnComplete != nil {
			run.OnComplete("echo: " + run.Message.Text)
		}
		return nil
	})

	replies := make(chan string, 1)
	msg := &types.InboundMessage{
		Source:     "test",
		SessionKey: types.NewSessionKey("test", "1"),
		Text:       "hello",
	}
	err := gw.HandleInbound(context.Background(), msg, WithOnComplete(func(reply string) {
		replies <- reply
	}))
	if err != nil {
		t.Fatal(err)
	}

	select {
	case reply := <-replies:
		if reply != "echo: hello" {
			t.Errorf("unexpected reply: %s", reply)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reply")
	}

	if _, ok := sessions.Lookup(context.Background(), msg.SessionKey); !ok {
		t.Error("expected session to be created")
	}
}

func TestEndSessionDiscardsContext(t *testing.T) {
	sessions := state.NewSessionStore()
	gw := New(sessions, 1)
	gw.Start(context.Background())
	defer gw.Stop()

	ctx := context.Background()
	session, _, err := sessions.ResolveOrCreate(ctx, "test:2")
	if err != nil {
		t.Fatal(err)
	}

	if err := gw.EndSession(ctx, session.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok := sessions.Lookup(ctx, "test:2"); ok {
		t.Error("session context survived EndSession")
	}
}
