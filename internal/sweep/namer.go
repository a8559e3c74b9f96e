package sweep

import "strings"

// Name derives the artifact prefix parts for one set of dimension bindings.
// It is a pure function of the bindings and the declared dimension order.
//
// The behaviour and eviction-strategy bindings become directory segments,
// matching the layout the downstream analysis collaborator expects. Every
// other dimension contributes its value, in declared order, to a dash
// separated filename prefix with a trailing dash; with only behaviour and
// eviction swept the filename prefix is empty and the prefix is just
// "<behaviour>/<eviction>/".
//
// The mapping is injective for any grid without crafted label overlap;
// BuildGrid verifies injectivity over the concrete grid and rejects
// colliding naming schemes outright.
func Name(dims []string, bindings map[string]string) (dir, filePrefix string) {
	dirParts := make([]string, 0, 2)
	var tail []string

	for _, d := range dims {
		v := bindings[d]
		switch d {
		case DimBehaviour, DimEviction:
			dirParts = append(dirParts, v)
		default:
			tail = append(tail, v)
		}
	}

	dir = strings.Join(dirParts, "/")
	if len(tail) > 0 {
		filePrefix = strings.Join(tail, "-") + "-"
	}
	return dir, filePrefix
}
