// internal/auth/errors.go
package auth

import "errors"

// CredentialError means no usable identity could be established. It is fatal
// to every warehouse-backed call in the session; echo still functions.
type CredentialError struct {
	Op  string
	Err error
}

func (e *CredentialError) Error() string {
	return "credentials: " + e.Op + ": " + e.Err.Error()
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

// IsCredentialError reports whether err is (or wraps) a CredentialError.
func IsCredentialError(err error) bool {
	var ce *CredentialError
	return errors.As(err, &ce)
}
