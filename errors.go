package formview

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeSchema        ErrorType = "schema"
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeTransport     ErrorType = "transport"
	ErrorTypeIdentity      ErrorType = "identity"
	ErrorTypeConfiguration ErrorType = "configuration"
)

// ValidationFailedMessage is the message a backend uses for field-level rejections.
const ValidationFailedMessage = "Validation failed"

// FieldError is a single field-level validation failure reported by a backend.
type FieldError struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// RequestInfo describes the request that produced a transport error.
type RequestInfo struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

// FormError represents unified errors from schema compilation, validation and transport
type FormError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Status  int            `json:"status,omitempty"`
	Path    string         `json:"path,omitempty"`
	Errors  []FieldError   `json:"errors,omitempty"`
	Request *RequestInfo   `json:"request,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *FormError) Error() string {
	if e.Request != nil {
		return fmt.Sprintf("[%s:%s] %s %s: %s", e.Type, e.Code, e.Request.Method, e.Request.URL, e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("[%s:%s] path '%s': %s", e.Type, e.Code, e.Path, e.Message)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

func (e *FormError) Unwrap() error {
	return e.Cause
}

// WithDetails adds details to a FormError
func (e *FormError) WithDetails(details map[string]any) *FormError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail adds a single detail to a FormError
func (e *FormError) WithDetail(key string, value any) *FormError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause adds a cause to a FormError
func (e *FormError) WithCause(cause error) *FormError {
	e.Cause = cause
	return e
}

// WithPath adds the absolute data or schema path the error refers to
func (e *FormError) WithPath(path string) *FormError {
	e.Path = path
	return e
}

// WithRequest records the request that failed
func (e *FormError) WithRequest(method, url string) *FormError {
	e.Request = &RequestInfo{Method: method, URL: url}
	return e
}

// WithErrors attaches field-level failures
func (e *FormError) WithErrors(errs []FieldError) *FormError {
	e.Errors = errs
	return e
}

// Error codes
const (
	// Schema errors
	ErrCodeUnsupportedSchema    = "UNSUPPORTED_SCHEMA"
	ErrCodeInvalidViewSpec      = "INVALID_VIEW_SPEC"
	ErrCodeUnsupportedArrayItem = "UNSUPPORTED_ARRAY_ITEM"
	ErrCodeUnknownVariant       = "UNKNOWN_VARIANT"
	ErrCodeDuplicateVariant     = "DUPLICATE_VARIANT"
	ErrCodeMissingVariantName   = "MISSING_VARIANT_NAME"
	ErrCodeInvalidPattern       = "INVALID_PATTERN"
	ErrCodeModelMismatch        = "MODEL_MISMATCH"

	// Identity errors
	ErrCodeMissingIdentity = "MISSING_IDENTITY"

	// Configuration errors
	ErrCodeUnknownResource    = "UNKNOWN_RESOURCE"
	ErrCodeUnknownView        = "UNKNOWN_VIEW"
	ErrCodeUnknownSearchIndex = "UNKNOWN_SEARCH_INDEX"
	ErrCodeUnknownControl     = "UNKNOWN_CONTROL"

	// Validation errors
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeFormInvalid      = "FORM_INVALID"

	// Transport errors
	ErrCodeRequestFailed   = "REQUEST_FAILED"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeInvalidResponse = "INVALID_RESPONSE"
)

// NewFormError creates a new FormError
func NewFormError(errorType ErrorType, code, message string) *FormError {
	return &FormError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}
}

// NewSchemaError creates a schema error anchored at a schema path
func NewSchemaError(code, path, message string) *FormError {
	return &FormError{
		Type:    ErrorTypeSchema,
		Code:    code,
		Message: message,
		Path:    path,
		Details: make(map[string]any),
	}
}

// NewUnsupportedSchemaError creates an error for schema shapes that cannot be handled
func NewUnsupportedSchemaError(path, message string) *FormError {
	return NewSchemaError(ErrCodeUnsupportedSchema, path, message)
}

// NewInvalidViewSpecError creates an error for a view keyword that is neither string nor object
func NewInvalidViewSpecError(path string) *FormError {
	return NewSchemaError(ErrCodeInvalidViewSpec, path, "view has to be of type object or string")
}

// NewUnsupportedArrayItemError creates an error for array item schemas that are not object or ref typed
func NewUnsupportedArrayItemError(path string) *FormError {
	return NewSchemaError(ErrCodeUnsupportedArrayItem, path, "array items schema is not of type object or ref")
}

// NewUnknownVariantError creates an error for an array item whose type_ matches no anyOf variant
func NewUnknownVariantError(path, variant string) *FormError {
	return NewSchemaError(ErrCodeUnknownVariant, path, "no schema for type found: "+variant).
		WithDetail("variant", variant)
}

// NewDuplicateVariantError creates an error for anyOf variants sharing a name
func NewDuplicateVariantError(path, variant string) *FormError {
	return NewSchemaError(ErrCodeDuplicateVariant, path, "anyOf variant name is not unique: "+variant).
		WithDetail("variant", variant)
}

// NewMissingVariantNameError creates an error for an anyOf variant without a name
func NewMissingVariantNameError(path string) *FormError {
	return NewSchemaError(ErrCodeMissingVariantName, path, "anyOf schema has to have a name")
}

// NewInvalidPatternError creates an error for a pattern keyword that does not compile
func NewInvalidPatternError(path, pattern string, cause error) *FormError {
	return NewSchemaError(ErrCodeInvalidPattern, path, "invalid pattern: "+pattern).WithCause(cause)
}

// NewModelMismatchError creates an error for data whose shape does not fit the schema
func NewModelMismatchError(path, expected string) *FormError {
	return NewSchemaError(ErrCodeModelMismatch, path, "model value is not of type "+expected)
}

// NewMissingIdentityError creates the error raised when deleting without id and rev
func NewMissingIdentityError() *FormError {
	return &FormError{
		Type:    ErrorTypeIdentity,
		Code:    ErrCodeMissingIdentity,
		Message: "cannot delete doc without id or rev",
		Details: make(map[string]any),
	}
}

// NewUnknownResourceError creates an error for an unregistered entity type
func NewUnknownResourceError(typeName string) *FormError {
	return NewFormError(ErrorTypeConfiguration, ErrCodeUnknownResource, "resource with type not found: "+typeName).
		WithDetail("type", typeName)
}

// NewUnknownViewError creates an error for a view name not registered for a type
func NewUnknownViewError(typeName, name string) *FormError {
	return NewFormError(ErrorTypeConfiguration, ErrCodeUnknownView, "no view with name found: "+name).
		WithDetail("type", typeName)
}

// NewUnknownSearchIndexError creates an error for a search index not registered for a type
func NewUnknownSearchIndexError(typeName, name string) *FormError {
	return NewFormError(ErrorTypeConfiguration, ErrCodeUnknownSearchIndex, "no search index with name found: "+name).
		WithDetail("type", typeName)
}

// NewValidationFailedError creates a validation error carrying field-level failures
func NewValidationFailedError(message string, errs []FieldError) *FormError {
	if message == "" {
		message = ValidationFailedMessage
	}
	return &FormError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeValidationFailed,
		Message: message,
		Errors:  errs,
		Details: make(map[string]any),
	}
}

// NewFormInvalidError creates the error returned when saving a form with active errors
func NewFormInvalidError() *FormError {
	return NewFormError(ErrorTypeValidation, ErrCodeFormInvalid, "model is not valid")
}

// NewTransportError creates a transport error for a failed request
func NewTransportError(status int, code, message string) *FormError {
	if code == "" {
		code = ErrCodeRequestFailed
	}
	return &FormError{
		Type:    ErrorTypeTransport,
		Code:    code,
		Message: message,
		Status:  status,
		Details: make(map[string]any),
	}
}

// AsFormError extracts a FormError from an error chain
func AsFormError(err error) (*FormError, bool) {
	var fe *FormError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// IsErrorType reports whether err is a FormError of the given type
func IsErrorType(err error, errorType ErrorType) bool {
	fe, ok := AsFormError(err)
	return ok && fe.Type == errorType
}

// IsValidationError reports whether err carries field-level validation failures.
// Transport errors with the backend's validation message or an errors list count as well.
func IsValidationError(err error) bool {
	fe, ok := AsFormError(err)
	if !ok {
		return false
	}
	return fe.Type == ErrorTypeValidation || fe.Message == ValidationFailedMessage || len(fe.Errors) > 0
}

// HasErrorCode reports whether err is a FormError with the given code
func HasErrorCode(err error, code string) bool {
	fe, ok := AsFormError(err)
	return ok && fe.Code == code
}
