// SPDX-License-Identifier: MPL-2.0

package modreg

const (
	// SeverityWarning indicates a recoverable discovery warning.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a mod that was skipped.
	SeverityError Severity = "error"
)

const (
	// CodeManifestMissing means a mod folder has no manifest.
	CodeManifestMissing DiagnosticCode = "manifest_missing"
	// CodeManifestInvalid means a manifest failed to parse or validate.
	CodeManifestInvalid DiagnosticCode = "manifest_invalid"
	// CodeFolderUnreadable means a mod folder could not be inspected.
	CodeFolderUnreadable DiagnosticCode = "folder_unreadable"
)

type (
	// Severity represents discovery diagnostic severity.
	Severity string

	// DiagnosticCode is a machine-readable diagnostic identifier.
	DiagnosticCode string

	// Diagnostic is a non-fatal discovery problem, returned to callers
	// rather than written to stderr so the CLI decides how to render it.
	Diagnostic struct {
		Severity Severity
		Code     DiagnosticCode
		Message  string
		// Path is the mod folder or manifest file concerned.
		Path string
		// Cause is the underlying error, if any.
		Cause error
	}
)

// String returns the severity name.
func (s Severity) String() string { return string(s) }

// String returns the code.
func (c DiagnosticCode) String() string { return string(c) }

// Error renders the diagnostic so it can be aggregated with other errors.
func (d Diagnostic) Error() string {
	if d.Path == "" {
		return d.Message
	}
	return d.Path + ": " + d.Message
}

// Unwrap returns the cause.
func (d Diagnostic) Unwrap() error { return d.Cause }
