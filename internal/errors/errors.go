// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package errors provides structured error handling for the forgepath
// pipeline and CLI.
//
// It defines PipelineError, a type that carries one of the fixed error
// *kinds* from the pipeline's error-handling design (INVALID_ARCHIVE,
// ARCHIVE_TOO_LARGE, PERMISSION_DENIED, AMBIGUOUS_MAPPING, CONFLICT,
// ANALYSER_FAILED, NOT_FOUND, TIMEOUT, CONSENT_DENIED,
// MALFORMED_LLM_RESPONSE, INVALID_ARGUMENT) plus a user-facing message,
// diagnostic cause, and actionable fix, along with a CLI exit code derived
// from the kind.
//
// # Usage Example
//
//	err := errors.NewArchiveTooLarge(
//	    "Archive exceeds the configured size limit",
//	    "uncompressed size 512MiB exceeds the 256MiB cap",
//	    "split the archive or raise archive.max_uncompressed_bytes",
//	    nil,
//	)
//	if err != nil {
//	    errors.FatalError(err, false)
//	}
//
// # Formatted Output
//
//	fmt.Fprint(os.Stderr, err.Format(false))
//	// Output (with colors):
//	// Error: [ARCHIVE_TOO_LARGE] Archive exceeds the configured size limit
//	// Cause: uncompressed size 512MiB exceeds the 256MiB cap
//	// Fix:   split the archive or raise archive.max_uncompressed_bytes
//
// For JSON output:
//
//	jsonData := err.ToJSON()
//	json.NewEncoder(os.Stderr).Encode(jsonData)
//	// Output:
//	// {
//	//   "kind": "ARCHIVE_TOO_LARGE",
//	//   "error": "Archive exceeds the configured size limit",
//	//   "cause": "uncompressed size 512MiB exceeds the 256MiB cap",
//	//   "fix": "split the archive or raise archive.max_uncompressed_bytes",
//	//   "exit_code": 4
//	// }
package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Kind is one of the fixed error kinds from the pipeline's error-handling
// design. Kinds are not Go types — every PipelineError shares one Go type
// and carries a Kind string so callers can switch on it without type
// assertions.
type Kind string

const (
	// KindInvalidArchive: the uploaded archive is not a well-formed ZIP.
	// Fatal for the whole ingest.
	KindInvalidArchive Kind = "INVALID_ARCHIVE"

	// KindArchiveTooLarge: uncompressed size exceeds the configured cap.
	KindArchiveTooLarge Kind = "ARCHIVE_TOO_LARGE"

	// KindPermissionDenied: a single path within an archive or project
	// tree could not be read. Non-fatal; that path is skipped.
	KindPermissionDenied Kind = "PERMISSION_DENIED"

	// KindAmbiguousMapping: a project_mapping entry matches more than one
	// candidate project. Maps to HTTP 409 at the API boundary.
	KindAmbiguousMapping Kind = "AMBIGUOUS_MAPPING"

	// KindConflict: per-project advisory lock contention. Maps to HTTP 409.
	KindConflict Kind = "CONFLICT"

	// KindAnalyserFailed: a language-specific C6 variant failed
	// catastrophically; the pipeline degrades to the generic analyser
	// path rather than aborting the project.
	KindAnalyserFailed Kind = "ANALYSER_FAILED"

	// KindNotFound: entity lookup failure (content hash, project, etc.).
	KindNotFound Kind = "NOT_FOUND"

	// KindTimeout: a subprocess or LLM call exceeded its deadline.
	KindTimeout Kind = "TIMEOUT"

	// KindConsentDenied: caller requested the LLM path but C11 refused.
	// Not surfaced as a user error — callers degrade to local generation
	// and log this kind as a diagnostic, never return it to the user.
	KindConsentDenied Kind = "CONSENT_DENIED"

	// KindMalformedLLMResponse: internal only; triggers local fallback in
	// C5/C10 and is never returned to a caller.
	KindMalformedLLMResponse Kind = "MALFORMED_LLM_RESPONSE"

	// KindInvalidArgument: caller-supplied input failed validation (e.g. a
	// rerank request with duplicate ranks). Maps to HTTP 400.
	KindInvalidArgument Kind = "INVALID_ARGUMENT"

	// KindInternal: unexpected internal error, not one of the above kinds.
	KindInternal Kind = "INTERNAL"
)

// Exit codes for different error categories. Used only at the cmd/forgepath
// CLI boundary; the pipeline itself never calls os.Exit.
const (
	ExitSuccess    = 0
	ExitInput      = 4
	ExitPermission = 5
	ExitNotFound   = 6
	ExitConflict   = 7
	ExitNetwork    = 3
	ExitDegraded   = 8
	ExitInternal   = 10
)

var exitCodeByKind = map[Kind]int{
	KindInvalidArchive:       ExitInput,
	KindArchiveTooLarge:      ExitInput,
	KindPermissionDenied:     ExitPermission,
	KindAmbiguousMapping:     ExitConflict,
	KindConflict:             ExitConflict,
	KindAnalyserFailed:       ExitDegraded,
	KindNotFound:             ExitNotFound,
	KindTimeout:              ExitNetwork,
	KindConsentDenied:        ExitDegraded,
	KindMalformedLLMResponse: ExitDegraded,
	KindInvalidArgument:      ExitInput,
	KindInternal:             ExitInternal,
}

// PipelineError represents an error with structured context, carrying a
// fixed Kind plus three levels of human-facing detail:
//   - Message: what went wrong (user-facing)
//   - Cause: why it happened (diagnostic)
//   - Fix: how to fix it (actionable suggestion)
type PipelineError struct {
	Kind    Kind
	Message string
	Cause   string
	Fix     string
	Err     error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap enables compatibility with errors.Is and errors.As.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// ExitCode returns the CLI exit code associated with this error's kind.
func (e *PipelineError) ExitCode() int {
	if code, ok := exitCodeByKind[e.Kind]; ok {
		return code
	}
	return ExitInternal
}

// New constructs a PipelineError of the given kind.
func New(kind Kind, msg, cause, fix string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Message: msg, Cause: cause, Fix: fix, Err: err}
}

// NewInvalidArchive creates an INVALID_ARCHIVE error (fatal for the ingest).
func NewInvalidArchive(msg, cause, fix string, err error) *PipelineError {
	return New(KindInvalidArchive, msg, cause, fix, err)
}

// NewArchiveTooLarge creates an ARCHIVE_TOO_LARGE error.
func NewArchiveTooLarge(msg, cause, fix string, err error) *PipelineError {
	return New(KindArchiveTooLarge, msg, cause, fix, err)
}

// NewPermissionDenied creates a PERMISSION_DENIED error for a single path.
func NewPermissionDenied(msg, cause, fix string, err error) *PipelineError {
	return New(KindPermissionDenied, msg, cause, fix, err)
}

// NewAmbiguousMapping creates an AMBIGUOUS_MAPPING (409) error.
func NewAmbiguousMapping(msg, cause, fix string) *PipelineError {
	return New(KindAmbiguousMapping, msg, cause, fix, nil)
}

// NewConflict creates a CONFLICT (409) error for lock contention.
func NewConflict(msg, cause, fix string) *PipelineError {
	return New(KindConflict, msg, cause, fix, nil)
}

// NewAnalyserFailed creates an ANALYSER_FAILED error for one language
// variant; callers degrade to the generic analyser rather than abort.
func NewAnalyserFailed(msg, cause, fix string, err error) *PipelineError {
	return New(KindAnalyserFailed, msg, cause, fix, err)
}

// NewNotFound creates a NOT_FOUND error for an entity lookup.
func NewNotFound(msg, cause, fix string) *PipelineError {
	return New(KindNotFound, msg, cause, fix, nil)
}

// NewTimeout creates a TIMEOUT error for a subprocess or LLM call.
func NewTimeout(msg, cause, fix string, err error) *PipelineError {
	return New(KindTimeout, msg, cause, fix, err)
}

// NewConsentDenied creates a CONSENT_DENIED diagnostic. Never surfaced to
// the end user as a failure; callers log it and degrade to local behavior.
func NewConsentDenied(msg, cause string) *PipelineError {
	return New(KindConsentDenied, msg, cause, "", nil)
}

// NewMalformedLLMResponse creates an internal MALFORMED_LLM_RESPONSE
// diagnostic that triggers local fallback.
func NewMalformedLLMResponse(msg, cause string, err error) *PipelineError {
	return New(KindMalformedLLMResponse, msg, cause, "", err)
}

// NewInvalidArgument creates an INVALID_ARGUMENT (400) validation error.
func NewInvalidArgument(msg, cause, fix string) *PipelineError {
	return New(KindInvalidArgument, msg, cause, fix, nil)
}

// NewInternal creates an INTERNAL error for unexpected failures.
func NewInternal(msg, cause, fix string, err error) *PipelineError {
	return New(KindInternal, msg, cause, fix, err)
}

// Color definitions for error formatting.
var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format returns a formatted error message for terminal display. Color
// output respects the NO_COLOR environment variable and can be explicitly
// disabled with the noColor parameter.
func (e *PipelineError) Format(noColor bool) string {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(fmt.Sprintf("[%s] %s", e.Kind, e.Message))
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

// JSON represents error information in JSON format, suitable for the
// --json CLI output mode.
type JSON struct {
	Kind     string `json:"kind"`
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// ToJSON converts the PipelineError to a JSON-serializable structure.
func (e *PipelineError) ToJSON() JSON {
	return JSON{
		Kind:     string(e.Kind),
		Error:    e.Message,
		Cause:    e.Cause,
		Fix:      e.Fix,
		ExitCode: e.ExitCode(),
	}
}

// FatalError prints the error and exits with the appropriate code. Never
// returns. Non-PipelineError values are printed as INTERNAL errors.
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}

	if pe, ok := err.(*PipelineError); ok {
		if jsonOutput {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			_ = enc.Encode(pe.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, pe.Format(false))
		}
		os.Exit(pe.ExitCode())
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitInternal)
}
