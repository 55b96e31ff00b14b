// Package state provides the in-memory session registry.
package state

import "github.com/user/schemabot/internal/types"

// Compile-time interface compliance check.
var _ types.SessionStore = (*SessionStore)(nil)
