package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeParseReference ErrorType = "parse_reference"
	ErrorTypeTransport      ErrorType = "transport"
	ErrorTypeDependency     ErrorType = "dependency"
	ErrorTypeCompile        ErrorType = "compile"
	ErrorTypeConfig         ErrorType = "config"
	ErrorTypeValidation     ErrorType = "validation"
)

// Common error codes.
const (
	ErrCodeUnknownPartial     = "ERR_UNKNOWN_PARTIAL"
	ErrCodeUnknownWrapper     = "ERR_UNKNOWN_WRAPPER"
	ErrCodeUnknownAlias       = "ERR_UNKNOWN_ALIAS"
	ErrCodeMissingAttribute   = "ERR_MISSING_ATTRIBUTE"
	ErrCodeUnterminatedTag    = "ERR_UNTERMINATED_TAG"
	ErrCodeWrapperPlaceholder = "ERR_WRAPPER_PLACEHOLDER"
	ErrCodeIncludeCycle       = "ERR_INCLUDE_CYCLE"
	ErrCodeFetchFailed        = "ERR_FETCH_FAILED"
	ErrCodeModuleFailed       = "ERR_MODULE_FAILED"
	ErrCodeDependencyCycle    = "ERR_DEPENDENCY_CYCLE"
	ErrCodeUnresolved         = "ERR_UNRESOLVED"
	ErrCodeCompileFailed      = "ERR_COMPILE_FAILED"
	ErrCodeConfigInvalid      = "ERR_CONFIG_INVALID"
	ErrCodeInvalidPath        = "ERR_INVALID_PATH"
)

// Error is a structured error carrying the offending name and the id of the
// file it originated from.
type Error struct {
	Type    ErrorType
	Code    string
	Message string
	File    string
	Name    string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.File != "" {
		parts = append(parts, "file:"+e.File)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithFile sets the id of the file the error originated from.
func (e *Error) WithFile(file string) *Error {
	e.File = file

	return e
}

// Error creation functions

// NewParseReferenceError reports an unknown partial, wrapper or include
// alias, or a malformed directive.
func NewParseReferenceError(code, file, name, message string) *Error {
	return &Error{
		Type:    ErrorTypeParseReference,
		Code:    code,
		Message: message,
		File:    file,
		Name:    name,
	}
}

// NewTransportError wraps a text fetch failure for locator.
func NewTransportError(locator string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeTransport,
		Code:    ErrCodeFetchFailed,
		Message: "failed to fetch " + locator,
		File:    locator,
		Cause:   cause,
	}
}

// NewDependencyError reports a failure resolving an external module or an
// included file.
func NewDependencyError(code, file, spec string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeDependency,
		Code:    code,
		Message: "failed to resolve dependency " + spec,
		File:    file,
		Name:    spec,
		Cause:   cause,
	}
}

// NewCompileError wraps an error raised by a compile hook.
func NewCompileError(file, partial string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeCompile,
		Code:    ErrCodeCompileFailed,
		Message: fmt.Sprintf("failed to compile template %q", partial),
		File:    file,
		Name:    partial,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *Error {
	return &Error{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

func isType(err error, typ ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == typ
	}

	return false
}

// IsParseReference checks if an error is a structural or reference error.
func IsParseReference(err error) bool { return isType(err, ErrorTypeParseReference) }

// IsTransport checks if an error is a text fetch failure.
func IsTransport(err error) bool { return isType(err, ErrorTypeTransport) }

// IsDependency checks if an error is a dependency resolution failure.
func IsDependency(err error) bool { return isType(err, ErrorTypeDependency) }

// IsCompile checks if an error was raised by a compile hook.
func IsCompile(err error) bool { return isType(err, ErrorTypeCompile) }

// CodeOf returns the code of the outermost structured error in err's chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ""
}

// ErrorHandler provides centralized error reporting.
type ErrorHandler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs an error at a level chosen by its type.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var e *Error
	if !errors.As(err, &e) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	switch e.Type {
	case ErrorTypeParseReference, ErrorTypeCompile:
		h.logger.Warn(ctx, err, "Template error occurred",
			"type", e.Type,
			"code", e.Code,
			"file", e.File,
			"name", e.Name)
	default:
		h.logger.Error(ctx, err, "Error occurred",
			"type", e.Type,
			"code", e.Code,
			"file", e.File)
	}
}
