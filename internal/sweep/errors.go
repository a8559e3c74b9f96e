package sweep

import "fmt"

// ConfigurationError reports a malformed dimension declaration or fixed
// parameter set. It is fatal and raised before any run starts.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// DuplicateDimensionError reports a dimension declared twice in a registry.
type DuplicateDimensionError struct {
	Name string
}

func (e *DuplicateDimensionError) Error() string {
	return fmt.Sprintf("dimension %q already declared", e.Name)
}

// EmptyDomainError reports a dimension declared with no values.
type EmptyDomainError struct {
	Name string
}

func (e *EmptyDomainError) Error() string {
	return fmt.Sprintf("dimension %q has no values", e.Name)
}

// PrefixCollisionError reports two distinct grid cells mapping to the same
// artifact prefix. This is a naming-scheme defect and is detected at
// grid-build time, before any artifact could be overwritten.
type PrefixCollisionError struct {
	Prefix string
	First  int
	Second int
}

func (e *PrefixCollisionError) Error() string {
	return fmt.Sprintf("artifact prefix %q collides between cells %d and %d", e.Prefix, e.First, e.Second)
}

// LaunchError reports that the external simulator process could not be
// started at all. It is fatal to the affected cell only.
type LaunchError struct {
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("could not launch simulation: %v", e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ArtifactExistsError reports a pre-existing metrics artifact at a cell's
// prefix when the existing-artifact policy is PolicyFail.
type ArtifactExistsError struct {
	Path string
}

func (e *ArtifactExistsError) Error() string {
	return fmt.Sprintf("artifact already exists at %s", e.Path)
}
