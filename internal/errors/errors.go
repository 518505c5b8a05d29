// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package errors provides structured error handling for the magellan CLI.
//
// This package defines UserError, a type that carries structured error information
// including what went wrong, why it happened, and how to fix it. It also defines
// the closed set of error kinds the knowledge graph pipeline can produce and the
// exit codes the CLI layer translates them to.
//
// # Usage Example
//
// Creating and displaying errors:
//
//	err := errors.NewFilesystemError(
//	    "Cannot read source file",
//	    "main.go is no longer readable",
//	    "Check file permissions or re-run scan",
//	    underlyingErr,
//	)
//	if err != nil {
//	    errors.FatalError(err, false)
//	}
//
// # Formatted Output
//
// The Format() method provides colored terminal output:
//
//	err := errors.NewDatabaseCompatibilityError(
//	    "Cannot open magellan database",
//	    "schema_version 3 is newer than this binary supports (2)",
//	    "Upgrade magellan or run with an older database",
//	    underlyingErr,
//	)
//	fmt.Fprint(os.Stderr, err.Format(false))
//	// Output (with colors):
//	// DB_COMPAT: Error: Cannot open magellan database
//	// Cause: schema_version 3 is newer than this binary supports (2)
//	// Fix:   Upgrade magellan or run with an older database
//
// For JSON output:
//
//	jsonData := err.ToJSON()
//	json.NewEncoder(os.Stderr).Encode(jsonData)
//
// # Error kinds and exit codes
//
// Every fallible operation returns one of seven kinds (§7):
//   - DatabaseCompatibility — schema mismatch or non-database file; fatal for open, non-mutating.
//   - StorageFailure — I/O or constraint violation during a transaction; the transaction is rolled back.
//   - Parse — source file unparseable beyond the extractor's tolerance; non-fatal, file recorded as diagnostic.
//   - Filesystem — unreadable or missing file during scan/reconcile; non-fatal, scanning continues.
//   - Resolution — reference/call target not found; silently allowed to produce orphan nodes.
//   - CancellationPending — shutdown observed; the writer finishes its current transaction, then exits.
//   - LogicInvariantViolation — internal check failed (e.g. orphan after reconcile); fatal, panic-like.
//
// The CLI only ever exits 0 (success), 1 (user-facing error), or 2 (database
// incompatible), per the CLI surface's contract; every kind above maps onto
// ExitUserError except DatabaseCompatibility, which maps to ExitDatabaseIncompatible.
package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Exit codes the CLI layer uses. Only three values are ever returned to the
// shell; everything else lives in Kind for programmatic branching.
const (
	// ExitSuccess indicates successful execution.
	ExitSuccess = 0

	// ExitUserError covers every error kind except DatabaseCompatibility:
	// StorageFailure, Parse, Filesystem, Resolution, CancellationPending,
	// LogicInvariantViolation.
	ExitUserError = 1

	// ExitDatabaseIncompatible is returned only for DatabaseCompatibility
	// errors, since the spec calls this out as its own exit code.
	ExitDatabaseIncompatible = 2
)

// Kind is the closed set of error kinds the knowledge graph pipeline can
// produce (§7).
type Kind string

const (
	KindDatabaseCompatibility  Kind = "DatabaseCompatibility"
	KindStorageFailure         Kind = "StorageFailure"
	KindParse                  Kind = "Parse"
	KindFilesystem             Kind = "Filesystem"
	KindResolution             Kind = "Resolution"
	KindCancellationPending    Kind = "CancellationPending"
	KindLogicInvariantViolation Kind = "LogicInvariantViolation"
)

// stderrPrefix is the stable per-kind prefix CLI error lines carry. Only
// DB_COMPAT, PARSE, and IO are named directly by the spec; the remaining
// four kinds are given analogous prefixes in the same style.
var stderrPrefix = map[Kind]string{
	KindDatabaseCompatibility:  "DB_COMPAT:",
	KindStorageFailure:         "STORAGE:",
	KindParse:                  "PARSE:",
	KindFilesystem:             "IO:",
	KindResolution:             "RESOLUTION:",
	KindCancellationPending:    "CANCELLED:",
	KindLogicInvariantViolation: "INVARIANT:",
}

func exitCodeFor(k Kind) int {
	if k == KindDatabaseCompatibility {
		return ExitDatabaseIncompatible
	}
	return ExitUserError
}

// UserError represents an error with structured context for end users.
//
// It provides three levels of information:
//   - Message: What went wrong (user-facing error description)
//   - Cause: Why it happened (diagnostic information)
//   - Fix: How to fix it (actionable suggestion)
//
// UserError also carries a Kind (and the exit code it implies) and
// optionally wraps an underlying error for error chain compatibility.
type UserError struct {
	// Message describes what went wrong in user-friendly language.
	Message string

	// Cause explains why the error occurred (diagnostic information).
	Cause string

	// Fix provides an actionable suggestion on how to resolve the error.
	Fix string

	// Kind is one of the seven error kinds in §7.
	Kind Kind

	// ExitCode is the exit code that should be used when exiting due to this error.
	ExitCode int

	// Err is the underlying error that caused this error (optional).
	// This enables error wrapping and compatibility with errors.Is/As.
	Err error
}

// Error implements the error interface.
//
// It returns a simple error message string. If an underlying error is present,
// it appends that error's message for context.
func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements error unwrapping for compatibility with errors.Is and errors.As.
func (e *UserError) Unwrap() error {
	return e.Err
}

func newKindError(kind Kind, msg, cause, fix string, err error) *UserError {
	return &UserError{
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		Kind:     kind,
		ExitCode: exitCodeFor(kind),
		Err:      err,
	}
}

// NewDatabaseCompatibilityError reports a schema mismatch or non-database
// file encountered while opening storage. Fatal for open, non-mutating.
func NewDatabaseCompatibilityError(msg, cause, fix string, err error) *UserError {
	return newKindError(KindDatabaseCompatibility, msg, cause, fix, err)
}

// NewStorageFailureError reports an I/O or constraint violation during a
// transaction. The caller's transaction has already been rolled back.
func NewStorageFailureError(msg, cause, fix string, err error) *UserError {
	return newKindError(KindStorageFailure, msg, cause, fix, err)
}

// NewParseError reports a source file unparseable beyond the extractor's
// tolerance. Non-fatal: the file is recorded as a diagnostic and no facts
// are inserted for it.
func NewParseError(msg, cause, fix string, err error) *UserError {
	return newKindError(KindParse, msg, cause, fix, err)
}

// NewFilesystemError reports an unreadable or missing file during scan or
// reconcile. Non-fatal: scanning continues with the remaining files.
func NewFilesystemError(msg, cause, fix string, err error) *UserError {
	return newKindError(KindFilesystem, msg, cause, fix, err)
}

// NewResolutionError reports a reference or call target that could not be
// found. Silently allowed to produce an orphan node; tracked for later
// resolution, so this constructor typically backs a log line, not a
// propagated error.
func NewResolutionError(msg, cause, fix string) *UserError {
	return newKindError(KindResolution, msg, cause, fix, nil)
}

// NewCancellationPendingError reports an observed shutdown request. The
// writer finishes its current transaction before exiting.
func NewCancellationPendingError(msg string) *UserError {
	return newKindError(KindCancellationPending, msg, "", "", nil)
}

// NewLogicInvariantViolationError reports an internal invariant failure
// (e.g. an orphan node surviving reconcile). Fatal, panic-like; intended
// to be caught at test time, not in production workflows.
func NewLogicInvariantViolationError(msg, cause string, err error) *UserError {
	return newKindError(KindLogicInvariantViolation, msg, cause, "This is a bug; please report it.", err)
}

// Color definitions for error formatting.
var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format returns a formatted error message for terminal display.
//
// The output includes colored sections for Error (red/bold), Cause (yellow),
// and Fix (green). Color output respects the NO_COLOR environment variable
// and can be explicitly disabled with the noColor parameter.
//
// Empty Cause or Fix fields are omitted from the output.
func (e *UserError) Format(noColor bool) string {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	prefix := stderrPrefix[e.Kind]
	if prefix != "" {
		out.WriteString(prefix)
		out.WriteString(" ")
	}
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")

	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}

	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}

	return out.String()
}

// ErrorJSON represents error information in JSON format, embedded in the
// response envelope's "error" field without breaking the envelope.
type ErrorJSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	Kind     string `json:"kind,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// ToJSON converts the UserError to a JSON-serializable structure.
func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{
		Error:    e.Message,
		Cause:    e.Cause,
		Fix:      e.Fix,
		Kind:     string(e.Kind),
		ExitCode: e.ExitCode,
	}
}

// FatalError prints the error and exits with the appropriate code.
//
// If the error is a UserError, it uses Format() for colored output or
// ToJSON() for JSON mode. For non-UserError types, it prints a simple
// error message and exits with ExitUserError.
//
// This function never returns - it always calls os.Exit().
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}

	if ue, ok := err.(*UserError); ok {
		if jsonOutput {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			_ = enc.Encode(ue.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, ue.Format(false))
		}
		os.Exit(ue.ExitCode)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitUserError)
}
