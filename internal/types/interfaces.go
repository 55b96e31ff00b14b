// internal/types/interfaces.go
package types

import "context"

// Catalog is the read-only metadata surface of the warehouse. Both calls may
// be invoked concurrently by independent sessions; implementations share one
// immutable identity context.
type Catalog interface {
	// ListTables enumerates every table visible to the resolved identity
	// within the configured project, in catalog-enumeration order. An empty
	// result is a valid state, not an error.
	ListTables(ctx context.Context) ([]TableRef, error)
	// DescribeTable fetches schema, partitioning and clustering metadata for
	// one table, fields in catalog order.
	DescribeTable(ctx context.Context, ref TableRef) (*TableMeta, error)
}

// SessionStore tracks live session contexts keyed by transport session key.
type SessionStore interface {
	ResolveOrCreate(ctx context.Context, key SessionKey) (*SessionContext, bool, error)
	Lookup(ctx context.Context, key SessionKey) (*SessionContext, bool)
	Get(ctx context.Context, id SessionID) (*SessionContext, error)
	List(ctx context.Context) ([]*SessionContext, error)
	Update(ctx context.Context, session *SessionContext) error
	End(ctx context.Context, id SessionID) error
}
