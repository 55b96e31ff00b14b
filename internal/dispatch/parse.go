// internal/dispatch/parse.go
package dispatch

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/user/schemabot/internal/types"
)

// fieldLine matches one rendered field line: two spaces of indent per
// nesting level, then name, type, mode and an optional description.
var fieldLine = regexp.MustCompile("^( *)- `([^`]+)`: `([^`]+)` \\((NULLABLE|REQUIRED|REPEATED)\\)(?: \\(Description: \\*(.*)\\*\\))?$")

// ParseFieldList reconstructs the field tree from rendered text. It is the
// inverse of the schema section of RenderTableMeta: field order and nesting
// depth survive a render/parse round trip exactly. Lines that are not field
// lines (headers, hints) are ignored.
func ParseFieldList(text string) ([]types.Field, error) {
	type node struct {
		field    types.Field
		children []*node
	}
	root := &node{}
	stack := []*node{root}

	for _, line := range strings.Split(text, "\n") {
		m := fieldLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		indent := len(m[1])
		if indent%2 != 0 {
			return nil, fmt.Errorf("odd indent on field line: %q", line)
		}
		depth := indent / 2
		if depth+1 > len(stack) {
			return nil, fmt.Errorf("nesting jump on field line: %q", line)
		}
		stack = stack[:depth+1]

		n := &node{field: types.Field{
			Name:        m[2],
			Type:        m[3],
			Mode:        m[4],
			Description: m[5],
		}}
		parent := stack[depth]
		parent.children = append(parent.children, n)
		stack = append(stack, n)
	}

	var convert func(nodes []*node) []types.Field
	convert = func(nodes []*node) []types.Field {
		if len(nodes) == 0 {
			return nil
		}
		fields := make([]types.Field, 0, len(nodes))
		for _, n := range nodes {
			f := n.field
			f.Fields = convert(n.children)
			fields = append(fields, f)
		}
		return fields
	}
	return convert(root.children), nil
}
