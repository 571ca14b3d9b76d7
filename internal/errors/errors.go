// Package errors provides standardized error handling for betra.
// It defines the error kinds raised while scanning module directories,
// editing presets and composing documents, plus helpers for consistent
// error creation, wrapping and inspection across the application.
package errors

import (
	"errors"
	"fmt"
)

// Standard errors package errors that we re-export for convenience
var (
	// Unwrap unwraps an error to access the underlying error
	Unwrap = errors.Unwrap
	// Is reports whether any error in err's chain matches target
	Is = errors.Is
	// As finds the first error in err's chain that matches target
	As = errors.As
)

// ErrorKind represents the kind of error
type ErrorKind int

// Error kinds
const (
	Unknown ErrorKind = iota
	// File error kinds
	FileNotFound
	FileAccessDenied
	InvalidPath
	// Config error kinds
	InvalidConfig
	// Preset error kinds
	InvalidPreset
	PresetNotFound
	// Composition error kinds
	EmptyInput
	BaseNotFound
	AppendFailed
	PersistenceFailed
	// Ledger error kinds
	LedgerFailed
)

// String returns a short name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case FileNotFound:
		return "not_found"
	case FileAccessDenied:
		return "access_denied"
	case InvalidPath:
		return "invalid_path"
	case InvalidConfig:
		return "invalid_config"
	case InvalidPreset:
		return "invalid_preset"
	case PresetNotFound:
		return "preset_not_found"
	case EmptyInput:
		return "empty_input"
	case BaseNotFound:
		return "base_not_found"
	case AppendFailed:
		return "append_failed"
	case PersistenceFailed:
		return "persistence_failed"
	case LedgerFailed:
		return "ledger_failed"
	default:
		return "unknown"
	}
}

// PersistenceHint is attached to failures writing the final artifact.
const PersistenceHint = "close any program that has the destination file open and try again"

// Common error constants for frequently occurring errors
var (
	ErrFileNotFound = NewFileError("file not found", "", FileNotFound, nil)
	ErrEmptyInput   = NewComposeError("nothing to compose", "", EmptyInput, nil)
)

// ApplicationError is the base error type for all application errors
type ApplicationError struct {
	msg  string
	err  error
	kind ErrorKind
}

// Error returns the error message
func (e *ApplicationError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

// Unwrap returns the wrapped error
func (e *ApplicationError) Unwrap() error {
	return e.err
}

// Kind returns the kind of error
func (e *ApplicationError) Kind() ErrorKind {
	return e.kind
}

// FileError represents errors related to file operations
type FileError struct {
	ApplicationError
	path string
}

// NewFileError creates a new file error
func NewFileError(msg string, path string, kind ErrorKind, err error) *FileError {
	return &FileError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		path: path,
	}
}

// Error returns the file error message
func (e *FileError) Error() string {
	if e.path != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.path, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.path)
	}
	return e.ApplicationError.Error()
}

// Path returns the file path associated with the error
func (e *FileError) Path() string {
	return e.path
}

// ConfigError represents errors related to configuration
type ConfigError struct {
	ApplicationError
	param string
}

// NewConfigError creates a new configuration error
func NewConfigError(msg string, param string, kind ErrorKind, err error) *ConfigError {
	return &ConfigError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		param: param,
	}
}

// Error returns the config error message
func (e *ConfigError) Error() string {
	if e.param != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.param, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.param)
	}
	return e.ApplicationError.Error()
}

// Param returns the configuration parameter associated with the error
func (e *ConfigError) Param() string {
	return e.param
}

// PresetError represents errors related to preset definitions
type PresetError struct {
	ApplicationError
	preset string
}

// NewPresetError creates a new preset error
func NewPresetError(msg string, preset string, kind ErrorKind, err error) *PresetError {
	return &PresetError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		preset: preset,
	}
}

// Error returns the preset error message
func (e *PresetError) Error() string {
	if e.preset != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.preset, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.preset)
	}
	return e.ApplicationError.Error()
}

// Preset returns the preset name associated with the error
func (e *PresetError) Preset() string {
	return e.preset
}

// ComposeError represents fatal errors of a composition run.
// Persistence failures carry a hint the caller can show to the user.
type ComposeError struct {
	ApplicationError
	path string
	hint string
}

// NewComposeError creates a new composition error
func NewComposeError(msg string, path string, kind ErrorKind, err error) *ComposeError {
	e := &ComposeError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		path: path,
	}
	if kind == PersistenceFailed {
		e.hint = PersistenceHint
	}
	return e
}

// Error returns the composition error message
func (e *ComposeError) Error() string {
	if e.path != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.path, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.path)
	}
	return e.ApplicationError.Error()
}

// Path returns the document path associated with the error
func (e *ComposeError) Path() string {
	return e.path
}

// Hint returns a user-facing suggestion, empty when there is none
func (e *ComposeError) Hint() string {
	return e.hint
}

// NewLedgerError creates an error raised by the composition ledger
func NewLedgerError(msg string, err error) *ApplicationError {
	return &ApplicationError{
		msg:  msg,
		err:  err,
		kind: LedgerFailed,
	}
}

// New creates a new error with a message
func New(msg string) error {
	return &ApplicationError{
		msg:  msg,
		kind: Unknown,
	}
}

// Newf creates a new error with a formatted message
func Newf(format string, args ...interface{}) error {
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		kind: Unknown,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  msg,
		err:  err,
		kind: Unknown,
	}
}

// Wrapf wraps an existing error with additional formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		err:  err,
		kind: Unknown,
	}
}

// KindOf returns the kind of the outermost application error in err's
// chain, so a kind given while wrapping wins over the cause's kind.
func KindOf(err error) ErrorKind {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if kind, ok := kindOf(e); ok {
			return kind
		}
	}
	return Unknown
}

func kindOf(err error) (ErrorKind, bool) {
	switch e := err.(type) {
	case *FileError:
		return e.Kind(), true
	case *ConfigError:
		return e.Kind(), true
	case *PresetError:
		return e.Kind(), true
	case *ComposeError:
		return e.Kind(), true
	case *ApplicationError:
		return e.Kind(), e.Kind() != Unknown
	}
	return Unknown, false
}

// IsNotFound checks if the error is a file not found error
func IsNotFound(err error) bool {
	var fileErr *FileError
	if errors.As(err, &fileErr) {
		return fileErr.Kind() == FileNotFound
	}
	return false
}

// IsAccessDenied checks if the error is a file access denied error
func IsAccessDenied(err error) bool {
	var fileErr *FileError
	if errors.As(err, &fileErr) {
		return fileErr.Kind() == FileAccessDenied
	}
	return false
}

// IsInvalidConfig checks if the error is an invalid configuration error
func IsInvalidConfig(err error) bool {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr.Kind() == InvalidConfig
	}
	return false
}

// IsInvalidPreset checks if the error is an invalid preset error
func IsInvalidPreset(err error) bool {
	var presetErr *PresetError
	if errors.As(err, &presetErr) {
		return presetErr.Kind() == InvalidPreset
	}
	return false
}

// IsPresetNotFound checks if the error reports an unknown preset
func IsPresetNotFound(err error) bool {
	var presetErr *PresetError
	if errors.As(err, &presetErr) {
		return presetErr.Kind() == PresetNotFound
	}
	return false
}

func isComposeKind(err error, kind ErrorKind) bool {
	var composeErr *ComposeError
	if errors.As(err, &composeErr) {
		return composeErr.Kind() == kind
	}
	return false
}

// IsEmptyInput checks if the error reports an empty composition input
func IsEmptyInput(err error) bool {
	return isComposeKind(err, EmptyInput)
}

// IsBaseNotFound checks if the error reports a missing or unreadable base document
func IsBaseNotFound(err error) bool {
	return isComposeKind(err, BaseNotFound)
}

// IsPersistence checks if the error reports a failure writing the final artifact
func IsPersistence(err error) bool {
	return isComposeKind(err, PersistenceFailed)
}

// IsLedger checks if the error was raised by the composition ledger
func IsLedger(err error) bool {
	return KindOf(err) == LedgerFailed
}
