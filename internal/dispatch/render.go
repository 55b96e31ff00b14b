// internal/dispatch/render.go
package dispatch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/user/schemabot/internal/auth"
	"github.com/user/schemabot/internal/types"
	"github.com/user/schemabot/internal/warehouse"
)

const greeting = "Hello! I'm your warehouse catalog assistant."

// RenderWelcome produces the first message of a session: the enumerated
// table listing in catalog order, with a short usage hint.
func RenderWelcome(refs []types.TableRef, trigger string, table types.TableRef) string {
	var b strings.Builder
	b.WriteString(greeting)
	b.WriteString("\n\n")

	if len(refs) == 0 {
		b.WriteString("No tables are visible to the current identity.\n")
	} else {
		b.WriteString("Tables visible to the current identity:\n")
		for i, ref := range refs {
			fmt.Fprintf(&b, "%d. %s\n", i+1, ref)
		}
	}

	if trigger != "" {
		fmt.Fprintf(&b, "\nSend %q to see the schema of `%s`. Anything else is echoed back.", trigger, table)
	}
	return b.String()
}

// RenderDegradedWelcome produces the welcome when the listing call failed.
// The failure category is named once; the session continues in echo mode.
func RenderDegradedWelcome(err error) string {
	var b strings.Builder
	b.WriteString(greeting)
	b.WriteString("\n\n")
	b.WriteString("The table listing is unavailable: ")
	b.WriteString(errorCategory(err))
	b.WriteString("\nYou can still send messages; they will be echoed back.")
	return b.String()
}

// RenderError turns a metadata failure into one chat-visible message naming
// the failure category. No stack traces, no internal identifiers.
func RenderError(err error) string {
	return "Schema lookup failed: " + errorCategory(err)
}

func errorCategory(err error) string {
	switch {
	case auth.IsCredentialError(err):
		return "warehouse credentials could not be established for this session."
	case errors.Is(err, warehouse.ErrTableNotFound):
		return "the configured table was not found or is not visible to the current identity."
	case errors.Is(err, warehouse.ErrCatalogAccess):
		return "the catalog denied access or is temporarily unavailable. Please try again."
	default:
		return "an unexpected warehouse error occurred. Please try again."
	}
}

// RenderTableMeta formats the describe-result: partitioning, clustering,
// then the field tree with nesting shown structurally by indentation.
func RenderTableMeta(meta *types.TableMeta) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Details for `%s`\n\n", meta.Ref)

	switch {
	case meta.Partitioning == nil:
		b.WriteString("Partitioning: none\n")
	case meta.Partitioning.Kind == types.PartitioningTime:
		fmt.Fprintf(&b, "Partitioning: TIME on `%s`", meta.Partitioning.Field)
		if meta.Partitioning.Granularity != "" {
			fmt.Fprintf(&b, " (%s)", meta.Partitioning.Granularity)
		}
		b.WriteString("\n")
	default:
		fmt.Fprintf(&b, "Partitioning: RANGE on `%s`\n", meta.Partitioning.Field)
	}

	if len(meta.ClusteringFields) > 0 {
		fmt.Fprintf(&b, "Clustering fields: `%s`\n", strings.Join(meta.ClusteringFields, "`, `"))
	} else {
		b.WriteString("Clustering fields: none\n")
	}

	n := countFields(meta.Schema)
	noun := "fields"
	if n == 1 {
		noun = "field"
	}
	fmt.Fprintf(&b, "\nSchema (%d %s):\n", n, noun)
	if len(meta.Schema) == 0 {
		b.WriteString("No schema information found.\n")
	} else {
		writeFields(&b, meta.Schema, 0)
	}

	if meta.Partitioning != nil && meta.Partitioning.Kind == types.PartitioningTime && meta.Partitioning.Field != "" {
		fmt.Fprintf(&b, "\nHint: filter on the partition field, e.g. WHERE DATE(%s) = CURRENT_DATE() - INTERVAL 1 DAY",
			meta.Partitioning.Field)
	}
	return b.String()
}

// countFields counts every field in the tree, nested ones included.
func countFields(fields []types.Field) int {
	n := 0
	for _, f := range fields {
		n += 1 + countFields(f.Fields)
	}
	return n
}

func writeFields(b *strings.Builder, fields []types.Field, depth int) {
	for _, f := range fields {
		b.WriteString(strings.Repeat("  ", depth))
		fmt.Fprintf(b, "- `%s`: `%s` (%s)", f.Name, f.Type, f.Mode)
		if f.Description != "" {
			fmt.Fprintf(b, " (Description: *%s*)", f.Description)
		}
		b.WriteString("\n")
		writeFields(b, f.Fields, depth+1)
	}
}
