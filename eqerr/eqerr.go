// Package eqerr defines the sentinel error kinds shared across the
// eqsatopt module: io, parse, invariant, resource, and extraction failures.
//
// Callers should use errors.Is against the Err* sentinels below, and
// errors.As against *InvariantError when they need the offending detail.
// Wrapping follows a "<package>: message" text convention with %w so the
// sentinel survives through package boundaries.
package eqerr

import "errors"

var (
	// ErrIO marks a file-read/write failure at the driver boundary.
	ErrIO = errors.New("eqsatopt: io error")

	// ErrParse marks a malformed netlist or rule file.
	ErrParse = errors.New("eqsatopt: parse error")

	// ErrInvariant marks an internal invariant violation. It is only ever
	// raised in debug builds (see egraph.DebugChecks); in release builds
	// the condition it guards is assumed to hold.
	ErrInvariant = errors.New("eqsatopt: invariant violation")

	// ErrResourceExhausted marks that saturation or ILP solving hit a
	// configured resource limit. It is a value, not a crash: callers
	// should fall back to the best result computed so far.
	ErrResourceExhausted = errors.New("eqsatopt: resource exhausted")

	// ErrNoSolution marks that extraction could not produce any acyclic
	// selection (every e-node in some reachable class was filtered).
	ErrNoSolution = errors.New("eqsatopt: no solution")
)

// InvariantError carries the specific condition that failed alongside
// ErrInvariant, so debug builds can report exactly what broke.
type InvariantError struct {
	Condition string
}

func (e *InvariantError) Error() string { return "eqsatopt: invariant violation: " + e.Condition }

func (e *InvariantError) Unwrap() error { return ErrInvariant }

// Invariant constructs an *InvariantError for the given failed condition.
func Invariant(condition string) error { return &InvariantError{Condition: condition} }
