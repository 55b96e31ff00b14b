// Package auth resolves the identity used for all warehouse calls: either
// the ambient Application Default Credentials, or short-lived impersonated
// tokens for a configured target service account.
package auth

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/impersonate"
	"google.golang.org/api/option"
)

// ScopeBigQueryReadOnly covers catalog reads and read-only query jobs.
// No write scope is ever requested.
const ScopeBigQueryReadOnly = "https://www.googleapis.com/auth/bigquery.readonly"

// Source says where an identity came from.
type Source string

const (
	SourceAmbient      Source = "ambient"
	SourceImpersonated Source = "impersonated"
)

// Identity is the resolved authorization principal. It is immutable and safe
// to share across sessions.
type Identity struct {
	Source          Source
	TargetPrincipal string
	Scopes          []string
	TokenSource     oauth2.TokenSource
}

// Resolver lazily resolves an Identity once per process. Successful results
// and genuine credential failures are cached: impersonation failures are
// permission problems, not transient, so they are never retried silently.
// A failure caused only by the caller's context (a disconnecting client, a
// deadline) is not cached; the next caller resolves again.
type Resolver struct {
	target string
	scopes []string

	// resolveFn is swapped in tests; nil means r.resolve.
	resolveFn func(context.Context) (*Identity, error)

	mu       sync.Mutex
	identity *Identity
	err      error
}

// NewResolver creates a Resolver. If impersonateTarget is non-empty, every
// warehouse call will use tokens minted for that service account; there is
// no fallback to the ambient identity.
func NewResolver(impersonateTarget string) *Resolver {
	return &Resolver{
		target: impersonateTarget,
		scopes: []string{ScopeBigQueryReadOnly},
	}
}

// Resolve returns the process-wide identity, resolving it on first use.
// Safe for concurrent callers; at most one resolution runs at a time.
func (r *Resolver) Resolve(ctx context.Context) (*Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.identity != nil || r.err != nil {
		return r.identity, r.err
	}

	fn := r.resolveFn
	if fn == nil {
		fn = r.resolve
	}
	identity, err := fn(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		r.err = err
		return nil, err
	}
	r.identity = identity
	return identity, nil
}

func (r *Resolver) resolve(ctx context.Context) (*Identity, error) {
	ambient, err := google.DefaultTokenSource(ctx, r.scopes...)
	if err != nil {
		return nil, &CredentialError{Op: "discover ambient credentials", Err: err}
	}

	if r.target == "" {
		return &Identity{
			Source:      SourceAmbient,
			Scopes:      r.scopes,
			TokenSource: ambient,
		}, nil
	}

	ts, err := impersonate.CredentialsTokenSource(ctx, impersonate.CredentialsConfig{
		TargetPrincipal: r.target,
		Scopes:          r.scopes,
	}, option.WithTokenSource(ambient))
	if err != nil {
		return nil, &CredentialError{Op: "impersonate " + r.target, Err: err}
	}

	return &Identity{
		Source:          SourceImpersonated,
		TargetPrincipal: r.target,
		Scopes:          r.scopes,
		TokenSource:     ts,
	}, nil
}
