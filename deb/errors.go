package deb

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConflictingPermissions is returned when more than one permission rule applies to a path.
	ErrConflictingPermissions = errors.New("conflicting permissions")
	// ErrInvalidEntryName is returned for ar member names that do not fit the header.
	ErrInvalidEntryName = errors.New("invalid archive entry name")
	// ErrEntryTooLarge is returned for ar members larger than MaxEntrySize.
	ErrEntryTooLarge = errors.New("archive entry too large")
	// ErrScriptTooLarge is returned for maintainer scripts larger than MaxEntrySize.
	ErrScriptTooLarge = errors.New("maintainer script too large")
	// ErrControlDataInvalid is returned when a control field value fails validation.
	ErrControlDataInvalid = errors.New("invalid control data")
	// ErrInvalidMagic is returned when an existing file is not an ar archive.
	ErrInvalidMagic = errors.New("not an ar archive")
	// ErrAssemblerUsed is returned when an Assembler is run a second time.
	ErrAssemblerUsed = errors.New("assembler already used")
	// ErrInvalidMode is returned for permission modes outside 0..07777.
	ErrInvalidMode = errors.New("invalid file mode")
	// ErrMalformedPackage is returned when a .deb does not have the expected member layout.
	ErrMalformedPackage = errors.New("malformed package")
)

// ConflictError describes a path matched by several permission rules.
type ConflictError struct {
	Path  string
	Rules []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %q is matched by %s", ErrConflictingPermissions, e.Path, strings.Join(e.Rules, ", "))
}

func (e *ConflictError) Unwrap() error { return ErrConflictingPermissions }

// ControlDataError reports the control field and value that failed validation.
type ControlDataError struct {
	Field  ControlField
	Value  string
	Reason string
}

func (e *ControlDataError) Error() string {
	return fmt.Sprintf("%s: %s %q: %s", ErrControlDataInvalid, e.Field, e.Value, e.Reason)
}

func (e *ControlDataError) Unwrap() error { return ErrControlDataInvalid }

func invalid(field ControlField, value, format string, args ...any) error {
	return &ControlDataError{Field: field, Value: value, Reason: fmt.Sprintf(format, args...)}
}

// EntryError reports an archive member rejected by the ar writer or a script
// rejected by the control bundle builder.
type EntryError struct {
	Name string
	Size int64
	Err  error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("%s: %q (%d bytes)", e.Err, e.Name, e.Size)
}

func (e *EntryError) Unwrap() error { return e.Err }
