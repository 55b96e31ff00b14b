package warehouse

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/api/googleapi"

	"github.com/user/schemabot/internal/auth"
)

func TestClassifyNotFound(t *testing.T) {
	err := classify("describe p.d.t", &googleapi.Error{Code: http.StatusNotFound})
	if !errors.Is(err, ErrTableNotFound) {
		t.Errorf("expected ErrTableNotFound, got %v", err)
	}
}

func TestClassifyPermissionDenied(t *testing.T) {
	err := classify("list datasets", &googleapi.Error{Code: http.StatusForbidden})
	if !errors.Is(err, ErrCatalogAccess) {
		t.Errorf("expected ErrCatalogAccess, got %v", err)
	}
}

func TestClassifyDescribeFoldsForbiddenIntoNotFound(t *testing.T) {
	err := classifyDescribe("describe p.d.t", &googleapi.Error{Code: http.StatusForbidden})
	if !errors.Is(err, ErrTableNotFound) {
		t.Errorf("expected ErrTableNotFound for a hidden table, got %v", err)
	}

	// Everything else keeps the shared classification.
	err = classifyDescribe("describe p.d.t", &googleapi.Error{Code: http.StatusInternalServerError})
	if !errors.Is(err, ErrCatalogAccess) {
		t.Errorf("expected ErrCatalogAccess, got %v", err)
	}
}

func TestClassifyUnknownErrorIsCatalogAccess(t *testing.T) {
	err := classify("list datasets", errors.New("connection reset"))
	if !errors.Is(err, ErrCatalogAccess) {
		t.Errorf("expected ErrCatalogAccess, got %v", err)
	}
}

func TestClassifyCredentialErrorPassesThrough(t *testing.T) {
	cred := &auth.CredentialError{Op: "impersonate sa@p.iam", Err: errors.New("denied")}
	err := classify("list datasets", fmt.Errorf("resolve: %w", cred))
	if !auth.IsCredentialError(err) {
		t.Errorf("expected CredentialError to pass through, got %v", err)
	}
	if errors.Is(err, ErrCatalogAccess) {
		t.Error("credential error must not be reclassified as catalog access")
	}
}

func TestRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"429", &googleapi.Error{Code: http.StatusTooManyRequests}, true},
		{"quota reason", &googleapi.Error{Code: http.StatusForbidden, Errors: []googleapi.ErrorItem{{Reason: "quotaExceeded"}}}, true},
		{"rate limit reason", &googleapi.Error{Code: http.StatusServiceUnavailable, Errors: []googleapi.ErrorItem{{Reason: "rateLimitExceeded"}}}, true},
		{"plain 403", &googleapi.Error{Code: http.StatusForbidden}, false},
		{"not an api error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rateLimited(tt.err); got != tt.want {
				t.Errorf("rateLimited = %v, want %v", got, tt.want)
			}
		})
	}
}
