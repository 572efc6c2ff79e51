// Package nanoerr implements the code-tagged error taxonomy described in
// spec.md §6/§7: every error the engine surfaces carries a stable code
// plus a human-readable message, and server errors additionally carry
// the full PostgreSQL error field set. Mirrors the teacher's own typed
// error pattern (ariga.io/atlas's sql/schema.NotExistError,
// sql/migrate.NotCleanError) rather than bare fmt.Errorf strings at
// package boundaries.
package nanoerr

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Code is one of the taxonomy tags enumerated in spec.md §6.
type Code string

const (
	CodeMigrationHazards Code = "MIGRATION_HAZARDS"
	CodePGResult         Code = "PG_RESULT_ERROR"
	CodePGNative         Code = "PG_NATIVE_ERROR"
	CodeParse            Code = "PARSE_ERROR"
	CodeDependencyCycle  Code = "DEPENDENCY_CYCLE"
	CodeApply            Code = "APPLY_ERROR"
	CodePlanner          Code = "PLANNER_ERROR"
)

// Error is the engine's error type: a code, a message, an optional
// wrapped cause, and (for CodePGResult) the full server error fields.
type Error struct {
	Code    Code
	Message string
	Cause   error

	// Server error fields, populated only for CodePGResult.
	Severity string
	SQLState string
	Detail   string
	Hint     string
	Position int32
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds an Error wrapping cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// FromPG converts a pgconn.PgError (a PGRES_FATAL_ERROR tuple) into the
// engine's result-error shape, carrying every server-provided field.
func FromPG(pe *pgconn.PgError) *Error {
	return &Error{
		Code:     CodePGResult,
		Message:  pe.Message,
		Cause:    pe,
		Severity: pe.Severity,
		SQLState: pe.Code,
		Detail:   pe.Detail,
		Hint:     pe.Hint,
		Position: pe.Position,
	}
}

// Hazard builds a CodeMigrationHazards error carrying the list of
// hazard tags the external planner refused to proceed past.
func Hazard(tags []string) *Error {
	return &Error{
		Code:    CodeMigrationHazards,
		Message: fmt.Sprintf("migration blocked by hazards: %v", tags),
	}
}

// As reports whether err (or something it wraps) is an *Error, writing
// it to target if so.
func As(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
