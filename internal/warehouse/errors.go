// internal/warehouse/errors.go
package warehouse

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/user/schemabot/internal/auth"
)

// Sentinel errors for the two recoverable failure categories. Both are
// non-fatal to a session: the dispatcher renders them and returns to Ready.
var (
	// ErrTableNotFound means the table does not exist or is not visible to
	// the resolved identity.
	ErrTableNotFound = errors.New("table not found")
	// ErrCatalogAccess covers permission denials, quota exhaustion and
	// transient service failures on a specific catalog call.
	ErrCatalogAccess = errors.New("catalog access failed")
)

// classify maps a raw API error onto the error taxonomy. Credential errors
// pass through untouched so callers can tell fatal from recoverable.
func classify(op string, err error) error {
	if auth.IsCredentialError(err) {
		return err
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, ErrTableNotFound)
	}

	return fmt.Errorf("%s: %w: %v", op, ErrCatalogAccess, err)
}

// classifyDescribe additionally folds permission denials into not-found.
// A chat user must not be able to tell a hidden table from a missing one.
func classifyDescribe(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusForbidden {
		return fmt.Errorf("%s: %w", op, ErrTableNotFound)
	}
	return classify(op, err)
}

// rateLimited reports whether err is an explicit rate-limit or quota signal.
// Only these are worth a single retry; permission problems are not.
func rateLimited(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	if gerr.Code == http.StatusTooManyRequests {
		return true
	}
	for _, item := range gerr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "quotaExceeded", "backendError":
			return true
		}
	}
	return false
}
