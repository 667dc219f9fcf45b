// Package simerr implements the error taxonomy used across the simulator:
// topology, configuration, numerical, runtime-limit and integration errors.
// Every kind wraps a plain error produced with gosl/chk the way fem's
// errorhandler.go layers Stop/PanicOrNot over chk, minus the MPI broadcast
// (this simulator is single-threaded, see DESIGN.md).
package simerr

import (
	"fmt"

	"github.com/cpmech/gosl/chk"
)

// Kind classifies an error per the §7 taxonomy.
type Kind int

const (
	// Topology marks unreachable nodes, ungrounded groups, dangling edges,
	// openings with no matching module. Fatal at setup time.
	Topology Kind = iota
	// Configuration marks missing models, unknown id lookups, droplets too
	// large for their channel, hybrid mode with a non-Poiseuille model.
	Configuration
	// Numerical marks negative resistance, rank-deficient MNA systems,
	// non-monotone event times. Aborts the current simulate() call.
	Numerical
	// RuntimeLimit marks maxIterations or tMax exceeded.
	RuntimeLimit
	// Integration marks a CFD simulator failing to converge within its own
	// iteration cap; propagated as a runtime-limit condition.
	Integration
)

func (k Kind) String() string {
	switch k {
	case Topology:
		return "topology"
	case Configuration:
		return "configuration"
	case Numerical:
		return "numerical"
	case RuntimeLimit:
		return "runtime-limit"
	case Integration:
		return "integration"
	default:
		return "unknown"
	}
}

// Error attributes a Kind to an underlying message, plus optional
// identifiers naming the event, channel, droplet or simulator that
// triggered it (§7 "User-visible behavior").
type Error struct {
	Kind    Kind
	Subject string // e.g. "channel 3", "droplet 7", "simulator lbm-0"
	Err     error
}

func (e *Error) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Kind, e.Subject, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a Kind-tagged error with a chk.Err-formatted message,
// mirroring how mconduct/mreten/mdl construct their errors.
func New(kind Kind, subject, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Subject: subject, Err: chk.Err(format, args...)}
}

// Topologyf builds a Topology error.
func Topologyf(subject, format string, args ...interface{}) *Error {
	return New(Topology, subject, format, args...)
}

// Configurationf builds a Configuration error.
func Configurationf(subject, format string, args ...interface{}) *Error {
	return New(Configuration, subject, format, args...)
}

// Numericalf builds a Numerical error.
func Numericalf(subject, format string, args ...interface{}) *Error {
	return New(Numerical, subject, format, args...)
}

// RuntimeLimitf builds a RuntimeLimit error.
func RuntimeLimitf(subject, format string, args ...interface{}) *Error {
	return New(RuntimeLimit, subject, format, args...)
}

// Integrationf builds an Integration error.
func Integrationf(subject, format string, args ...interface{}) *Error {
	return New(Integration, subject, format, args...)
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	se, ok := err.(*Error)
	return ok && se.Kind == kind
}
