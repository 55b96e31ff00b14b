package auth

import (
	"context"
	"errors"
	"testing"
)

func TestResolveCachesSuccess(t *testing.T) {
	calls := 0
	r := NewResolver("")
	r.resolveFn = func(ctx context.Context) (*Identity, error) {
		calls++
		return &Identity{Source: SourceAmbient}, nil
	}

	first, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("expected the same cached identity")
	}
	if calls != 1 {
		t.Errorf("expected 1 resolution, got %d", calls)
	}
}

func TestResolveCachesCredentialFailure(t *testing.T) {
	calls := 0
	r := NewResolver("sa@example.iam")
	r.resolveFn = func(ctx context.Context) (*Identity, error) {
		calls++
		return nil, &CredentialError{Op: "impersonate sa@example.iam", Err: errors.New("permission denied")}
	}

	for i := 0; i < 3; i++ {
		if _, err := r.Resolve(context.Background()); !IsCredentialError(err) {
			t.Fatalf("attempt %d: expected CredentialError, got %v", i, err)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 resolution, got %d", calls)
	}
}

func TestResolveRetriesAfterCallerCancellation(t *testing.T) {
	calls := 0
	r := NewResolver("")
	r.resolveFn = func(ctx context.Context) (*Identity, error) {
		calls++
		if calls == 1 {
			return nil, &CredentialError{Op: "discover ambient credentials", Err: context.Canceled}
		}
		return &Identity{Source: SourceAmbient}, nil
	}

	// A disconnecting first caller must not poison every later session.
	if _, err := r.Resolve(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	identity, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("expected second resolution to succeed, got %v", err)
	}
	if identity == nil || identity.Source != SourceAmbient {
		t.Errorf("unexpected identity: %+v", identity)
	}
	if calls != 2 {
		t.Errorf("expected 2 resolutions, got %d", calls)
	}
}
