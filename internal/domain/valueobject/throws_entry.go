package valueobject

import "strings"

// DefaultErrorType is the label recorded for a throws annotation that names
// no type. It is a business rule, not a parsing accident: an untyped
// "@throws" still declares that the function raises something.
const DefaultErrorType = "Error"

// ThrowsEntry is one exception type a function's doc comment declares.
type ThrowsEntry struct {
	errorType   string
	description *string
}

// NewThrowsEntry creates a ThrowsEntry. A blank errorType becomes
// DefaultErrorType; a blank description is recorded as absent.
func NewThrowsEntry(errorType, description string) ThrowsEntry {
	entry := ThrowsEntry{errorType: strings.TrimSpace(errorType)}
	if entry.errorType == "" {
		entry.errorType = DefaultErrorType
	}

	if trimmed := strings.TrimSpace(description); trimmed != "" {
		entry.description = &trimmed
	}

	return entry
}

// ErrorType returns the declared exception type name.
func (e ThrowsEntry) ErrorType() string {
	if e.errorType == "" {
		return DefaultErrorType
	}
	return e.errorType
}

// Description returns the trimmed description and whether one was given.
func (e ThrowsEntry) Description() (string, bool) {
	if e.description == nil {
		return "", false
	}
	return *e.description, true
}

// HasDescription reports whether the entry carries a description.
func (e ThrowsEntry) HasDescription() bool {
	return e.description != nil
}

// String formats the entry as "Type" or "Type: description".
func (e ThrowsEntry) String() string {
	if desc, ok := e.Description(); ok {
		return e.ErrorType() + ": " + desc
	}
	return e.ErrorType()
}
