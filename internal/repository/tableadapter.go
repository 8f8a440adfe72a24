package repository

import "fmt"

// isSafeIdentifier restricts dynamically-interpolated identifiers (table
// and schema names, which cannot be bound as SQL parameters) to a
// conservative charset, closing the one legitimate path by which
// interpolation could otherwise reach a query string.
func isSafeIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}

	return true
}

// tableAdapter translates a logical product name into the concrete
// physical table name for one backend. It is never exposed publicly —
// callers (the Agent Orchestrator's tool calls, chiefly) address logical
// product names; only the Repository implementation resolves the
// physical name, which is the contract that lets the agent speak one
// name across backends (spec.md §4.A, §4.F, scenario 4 of §8).
type tableAdapter interface {
	physicalTable(product string) string
}

// embeddedTableAdapter is the identity adapter used by the embedded
// backend.
type embeddedTableAdapter struct{}

func (embeddedTableAdapter) physicalTable(product string) string { return product }

// remoteTableAdapter applies the NS_DP_<source>_<Product>_V1 naming
// convention of the remote backend, literally as specified in spec.md §3.
type remoteTableAdapter struct {
	source string
}

func (a remoteTableAdapter) physicalTable(product string) string {
	return fmt.Sprintf("NS_DP_%s_%s_V1", a.source, product)
}
