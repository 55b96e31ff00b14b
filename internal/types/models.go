// internal/types/models.go
package types

import (
	"fmt"
	"strings"
	"time"
)

// TableRef is a fully qualified BigQuery table reference. It is an immutable
// value: produced by catalog listing, consumed by schema lookup.
type TableRef struct {
	Project string `json:"project"`
	Dataset string `json:"dataset"`
	Table   string `json:"table"`
}

// String renders the reference as project.dataset.table.
func (r TableRef) String() string {
	return r.Project + "." + r.Dataset + "." + r.Table
}

// ParseTableRef parses a table identifier with 1 to 3 dot-separated parts.
// Missing parts are filled from the given defaults, so "t", "d.t" and
// "p.d.t" are all accepted.
func ParseTableRef(identifier, defaultProject, defaultDataset string) (TableRef, error) {
	parts := strings.Split(identifier, ".")
	switch len(parts) {
	case 1:
		return TableRef{Project: defaultProject, Dataset: defaultDataset, Table: parts[0]}, nil
	case 2:
		return TableRef{Project: defaultProject, Dataset: parts[0], Table: parts[1]}, nil
	case 3:
		return TableRef{Project: parts[0], Dataset: parts[1], Table: parts[2]}, nil
	default:
		return TableRef{}, fmt.Errorf("invalid table identifier: %s", identifier)
	}
}

// Field modes as reported by the catalog.
const (
	ModeNullable = "NULLABLE"
	ModeRequired = "REQUIRED"
	ModeRepeated = "REPEATED"
)

// Field is one column of a table schema. RECORD columns carry their ordered
// child columns in Fields; leaves are primitive columns.
type Field struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Mode        string  `json:"mode"`
	Description string  `json:"description,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
}

// Partitioning kinds.
const (
	PartitioningTime  = "TIME"
	PartitioningRange = "RANGE"
)

// PartitioningInfo describes how a table is partitioned.
type PartitioningInfo struct {
	Kind        string `json:"kind"`
	Field       string `json:"field,omitempty"`
	Granularity string `json:"granularity,omitempty"`
}

// TableMeta is the describe-result for one table. Schema holds the top-level
// fields in catalog order; that order is preserved through rendering.
type TableMeta struct {
	Ref              TableRef          `json:"ref"`
	Schema           []Field           `json:"schema"`
	Partitioning     *PartitioningInfo `json:"partitioning,omitempty"`
	ClusteringFields []string          `json:"clustering_fields,omitempty"`
}

// SessionContext is the per-conversation state. Created at session start,
// discarded at session end, never shared across sessions. Listing caches the
// table references rendered in the welcome message.
type SessionContext struct {
	ID        SessionID  `json:"id"`
	Key       SessionKey `json:"key"`
	StartedAt time.Time  `json:"started_at"`
	Listing   []TableRef `json:"listing,omitempty"`
	Degraded  bool       `json:"degraded"`
}

// InboundMessage is a transport-neutral inbound chat message.
type InboundMessage struct {
	Source     string     `json:"source"`
	SessionKey SessionKey `json:"session_key"`
	UserID     string     `json:"user_id"`
	Text       string     `json:"text"`
}
