package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/user/schemabot/internal/auth"
	"github.com/user/schemabot/internal/state"
	"github.com/user/schemabot/internal/types"
	"github.com/user/schemabot/internal/warehouse"
)

const trigger = "dq_lineage_exp"

type fakeCatalog struct {
	tables      []types.TableRef
	listErr     error
	meta        *types.TableMeta
	describeErr error

	listCalls     int
	describeCalls int
}

func (f *fakeCatalog) ListTables(ctx context.Context) ([]types.TableRef, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.tables, nil
}

func (f *fakeCatalog) DescribeTable(ctx context.Context, ref types.TableRef) (*types.TableMeta, error) {
	f.describeCalls++
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return f.meta, nil
}

func newDispatcher(catalog *fakeCatalog) (*Dispatcher, *state.SessionStore) {
	sessions := state.NewSessionStore()
	return New(catalog, sessions, testTable, trigger), sessions
}

func TestStartSessionListsTables(t *testing.T) {
	catalog := &fakeCatalog{tables: []types.TableRef{
		{Project: "a", Dataset: "b", Table: "t1"},
		{Project: "a", Dataset: "b", Table: "t2"},
	}}
	d, _ := newDispatcher(catalog)

	session, messages, err := d.StartSession(context.Background(), "test:1")
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected one welcome message, got %d", len(messages))
	}
	if !strings.Contains(messages[0], "1. a.b.t1") || !strings.Contains(messages[0], "2. a.b.t2") {
		t.Errorf("welcome missing listing:\n%s", messages[0])
	}
	if len(session.Listing) != 2 {
		t.Errorf("expected listing cached on session, got %d entries", len(session.Listing))
	}
	if session.Degraded {
		t.Error("session should not be degraded")
	}
}

func TestStartSessionZeroTables(t *testing.T) {
	d, _ := newDispatcher(&fakeCatalog{})

	_, messages, err := d.StartSession(context.Background(), "test:1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(messages[0], "No tables are visible") {
		t.Errorf("expected explicit no-tables welcome:\n%s", messages[0])
	}
}

func TestStartSessionDegradedOnCatalogError(t *testing.T) {
	catalog := &fakeCatalog{listErr: warehouse.ErrCatalogAccess}
	d, _ := newDispatcher(catalog)

	session, messages, err := d.StartSession(context.Background(), "test:1")
	if err != nil {
		t.Fatal(err)
	}
	if !session.Degraded {
		t.Error("expected degraded session")
	}
	if !strings.Contains(messages[0], "unavailable") {
		t.Errorf("expected degraded notice:\n%s", messages[0])
	}
}

func TestStartSessionDegradedOnCredentialError(t *testing.T) {
	catalog := &fakeCatalog{listErr: &auth.CredentialError{
		Op: "impersonate sa@p.iam", Err: errors.New("permission denied"),
	}}
	d, _ := newDispatcher(catalog)

	session, messages, err := d.StartSession(context.Background(), "test:1")
	if err != nil {
		t.Fatal(err)
	}
	if !session.Degraded {
		t.Error("expected degraded session")
	}
	if !strings.Contains(messages[0], "credentials") {
		t.Errorf("expected credential category in notice:\n%s", messages[0])
	}

	// Echo keeps working after the credential failure.
	reply := d.HandleMessage(context.Background(), &types.InboundMessage{SessionKey: "test:1", Text: "still here"})
	if reply != "still here" {
		t.Errorf("echo broken in degraded session: %q", reply)
	}
}

func TestHandleMessageEchoIsExact(t *testing.T) {
	catalog := &fakeCatalog{}
	d, _ := newDispatcher(catalog)

	inputs := []string{
		"hello",
		"",
		" dq_lineage_exp",
		"dq_lineage_exp ",
		"please show dq_lineage_exp",
		"  spaced  ",
	}
	for _, text := range inputs {
		reply := d.HandleMessage(context.Background(), &types.InboundMessage{Text: text})
		if reply != text {
			t.Errorf("echo(%q) = %q", text, reply)
		}
	}
	if catalog.describeCalls != 0 {
		t.Errorf("echo input triggered %d describe calls", catalog.describeCalls)
	}
}

func TestHandleMessageTriggerDescribesOnce(t *testing.T) {
	catalog := &fakeCatalog{meta: &types.TableMeta{
		Ref: testTable,
		Schema: []types.Field{
			{Name: "id", Type: "INTEGER", Mode: types.ModeRequired},
			{Name: "name", Type: "STRING", Mode: types.ModeNullable},
		},
	}}
	d, _ := newDispatcher(catalog)

	reply := d.HandleMessage(context.Background(), &types.InboundMessage{Text: trigger})
	if catalog.describeCalls != 1 {
		t.Fatalf("expected exactly one describe call, got %d", catalog.describeCalls)
	}
	if !strings.Contains(reply, "- `id`: `INTEGER` (REQUIRED)") {
		t.Errorf("reply missing field list:\n%s", reply)
	}
	if !strings.Contains(reply, "- `name`: `STRING` (NULLABLE)") {
		t.Errorf("reply missing field list:\n%s", reply)
	}
}

func TestHandleMessageTableNotFound(t *testing.T) {
	catalog := &fakeCatalog{describeErr: warehouse.ErrTableNotFound}
	d, _ := newDispatcher(catalog)

	reply := d.HandleMessage(context.Background(), &types.InboundMessage{Text: trigger})
	if !strings.Contains(reply, "not found") {
		t.Errorf("expected not-found rendering, got %q", reply)
	}

	// The session keeps accepting messages afterwards.
	if echo := d.HandleMessage(context.Background(), &types.InboundMessage{Text: "next"}); echo != "next" {
		t.Errorf("session broken after not-found: %q", echo)
	}
}

func TestHandleMessageErrorRenderingHidesInternals(t *testing.T) {
	catalog := &fakeCatalog{describeErr: errors.New("rpc error: code = 13 desc = internal stack trace")}
	d, _ := newDispatcher(catalog)

	reply := d.HandleMessage(context.Background(), &types.InboundMessage{Text: trigger})
	if strings.Contains(reply, "rpc error") || strings.Contains(reply, "stack") {
		t.Errorf("internal detail leaked to chat: %q", reply)
	}
}
