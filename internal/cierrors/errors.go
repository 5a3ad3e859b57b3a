package cierrors

import "fmt"

// CIError is the structured error type carried across the indexing and
// retrieval pipelines, and mapped to the tool surface's single response
// shape (a short kind tag plus a human-readable message).
type CIError struct {
	Code      string
	Kind      Kind
	Severity  Severity
	Message   string
	Details   map[string]string
	Cause     error
	Retryable bool
}

// Error implements the error interface.
func (e *CIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *CIError) Unwrap() error {
	return e.Cause
}

// Is matches another *CIError by code, so errors.Is(err, Sentinel) works.
func (e *CIError) Is(target error) bool {
	t, ok := target.(*CIError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail attaches a key/value detail and returns the receiver for chaining.
func (e *CIError) WithDetail(key, value string) *CIError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New builds a CIError from a code, deriving Kind/Severity/Retryable from it.
func New(code, message string, cause error) *CIError {
	kind := kindFromCode(code)
	return &CIError{
		Code:      code,
		Kind:      kind,
		Severity:  severityFromKind(kind),
		Message:   message,
		Cause:     cause,
		Retryable: isRetryableKind(kind),
	}
}

// Wrap turns a plain error into a CIError under the given code.
func Wrap(code string, err error) *CIError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Convenience constructors mirroring spec.md §7's taxonomy.

func ConfigInvalid(message string, cause error) *CIError {
	return New(CodeConfigUnparseable, message, cause)
}

func IoFailure(message string, cause error) *CIError {
	return New(CodeIOReadFailed, message, cause)
}

func ParseErr(message string, cause error) *CIError {
	return New(CodeParseSyntax, message, cause)
}

func ExtractErr(message string, cause error) *CIError {
	return New(CodeExtractInvariant, message, cause)
}

func StoreBusy(message string, cause error) *CIError {
	return New(CodeStoreLockBusy, message, cause)
}

func StoreInvariant(message string, cause error) *CIError {
	return New(CodeStoreDimensionMismatch, message, cause)
}

func ModelUnavailable(message string, cause error) *CIError {
	return New(CodeModelUnavailable, message, cause)
}

func Timeout(message string, cause error) *CIError {
	return New(CodeRetrievalTimeout, message, cause)
}

func NotFound(message string) *CIError {
	return New(CodeNotFoundSymbol, message, nil)
}

func InvalidArgument(message string) *CIError {
	return New(CodeInvalidArgument, message, nil)
}

// IsRetryable reports whether err is a CIError flagged retryable.
func IsRetryable(err error) bool {
	ce, ok := err.(*CIError)
	return ok && ce.Retryable
}

// IsFatal reports whether err is a CIError with fatal severity.
func IsFatal(err error) bool {
	ce, ok := err.(*CIError)
	return ok && ce.Severity == SeverityFatal
}

// CodeOf extracts the code from a CIError, or "" if err isn't one.
func CodeOf(err error) string {
	if ce, ok := err.(*CIError); ok {
		return ce.Code
	}
	return ""
}

// KindOf extracts the Kind from a CIError, or "" if err isn't one.
func KindOf(err error) Kind {
	if ce, ok := err.(*CIError); ok {
		return ce.Kind
	}
	return ""
}
