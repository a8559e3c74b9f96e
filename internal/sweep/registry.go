// Package sweep implements the batch experiment harness for the agent
// trust/reputation simulator: declaring sweep dimensions, building the
// Cartesian configuration grid, deriving collision-free artifact prefixes,
// and orchestrating one external simulation run per grid cell.
package sweep

// Dimension is one named axis of experiment variation with an ordered,
// finite set of admissible values.
type Dimension struct {
	Name   string
	Values []string
}

// Registry holds the declared sweep dimensions. Declaration order is
// significant: the configuration grid and the artifact naming scheme both
// follow it, which is what keeps sweeps reproducible.
type Registry struct {
	dims  []Dimension
	names map[string]struct{}
}

// NewRegistry creates an empty dimension registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Declare adds a dimension with the given values. It returns
// DuplicateDimensionError if the name was already declared and
// EmptyDomainError if values is empty. The value slice is copied.
func (r *Registry) Declare(name string, values ...string) error {
	if _, dup := r.names[name]; dup {
		return &DuplicateDimensionError{Name: name}
	}
	if len(values) == 0 {
		return &EmptyDomainError{Name: name}
	}

	vals := make([]string, len(values))
	copy(vals, values)

	r.names[name] = struct{}{}
	r.dims = append(r.dims, Dimension{Name: name, Values: vals})
	return nil
}

// All returns the declared dimensions in declaration order.
func (r *Registry) All() []Dimension {
	out := make([]Dimension, len(r.dims))
	copy(out, r.dims)
	return out
}

// Has reports whether a dimension with the given name was declared.
func (r *Registry) Has(name string) bool {
	_, ok := r.names[name]
	return ok
}

// Cardinality returns the product of all dimension value counts, which is
// the number of cells a grid built from this registry will have.
func (r *Registry) Cardinality() int {
	if len(r.dims) == 0 {
		return 0
	}
	total := 1
	for _, d := range r.dims {
		total *= len(d.Values)
	}
	return total
}
