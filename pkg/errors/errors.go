package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeIdempotency  Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit    Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"
	CodeCanceled     Code = "CANCELED"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		Retryable:      false,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeUnauthorized: {
		HTTPStatus:     http.StatusUnauthorized,
		Retryable:      false,
		PublicMessage:  "please log in to continue",
		DetailsAllowed: false,
	},
	CodeForbidden: {
		HTTPStatus:     http.StatusForbidden,
		Retryable:      false,
		PublicMessage:  "access denied",
		DetailsAllowed: false,
	},
	CodeNotFound: {
		HTTPStatus:     http.StatusNotFound,
		Retryable:      false,
		PublicMessage:  "resource not found",
		DetailsAllowed: false,
	},
	CodeConflict: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "conflict detected",
		DetailsAllowed: false,
	},
	CodeIdempotency: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "idempotency key reused",
		DetailsAllowed: true,
	},
	CodeRateLimit: {
		HTTPStatus:     http.StatusTooManyRequests,
		Retryable:      true,
		PublicMessage:  "rate limit exceeded",
		DetailsAllowed: false,
	},
	CodeInternal: {
		HTTPStatus:     http.StatusInternalServerError,
		Retryable:      true,
		PublicMessage:  "internal server error",
		DetailsAllowed: false,
	},
	CodeDependency: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "dependency unavailable",
		DetailsAllowed: true,
	},
	CodeCanceled: {
		HTTPStatus:     499,
		Retryable:      false,
		PublicMessage:  "request canceled",
		DetailsAllowed: false,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the code carried by err, CodeCanceled for context errors and CodeInternal otherwise.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	if stdErrors.Is(err, context.Canceled) || stdErrors.Is(err, context.DeadlineExceeded) {
		return CodeCanceled
	}
	return CodeInternal
}

// IsCanceled reports whether err represents a superseded or aborted request.
// Deadline expiry counts as a transport failure, not a cancellation.
func IsCanceled(err error) bool {
	if err == nil {
		return false
	}
	if stdErrors.Is(err, context.Canceled) {
		return true
	}
	typed := As(err)
	return typed != nil && typed.Code() == CodeCanceled
}

// FromStatus maps a remote HTTP status into a coded error.
func FromStatus(status int, message string) *Error {
	code := CodeInternal
	switch {
	case status == http.StatusUnauthorized:
		code = CodeUnauthorized
	case status == http.StatusForbidden:
		code = CodeForbidden
	case status == http.StatusNotFound:
		code = CodeNotFound
	case status == http.StatusConflict:
		code = CodeConflict
	case status == http.StatusTooManyRequests:
		code = CodeRateLimit
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		code = CodeValidation
	case status >= 500:
		code = CodeDependency
	}
	if strings.TrimSpace(message) == "" {
		message = MetadataFor(code).PublicMessage
	}
	return New(code, message)
}

// FlattenFieldErrors joins every field message into one human-readable string.
// Fields are visited in sorted order so the output is stable.
func FlattenFieldErrors(fields map[string][]string) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		for _, msg := range fields[key] {
			if msg = strings.TrimSpace(msg); msg != "" {
				parts = append(parts, msg)
			}
		}
	}
	return strings.Join(parts, " ")
}

// UserMessage renders err for display. Canceled requests yield an empty string.
func UserMessage(err error, resource string) string {
	if err == nil || IsCanceled(err) {
		return ""
	}
	typed := As(err)
	if typed == nil {
		return genericFailure(resource)
	}
	switch typed.Code() {
	case CodeUnauthorized:
		return MetadataFor(CodeUnauthorized).PublicMessage
	case CodeValidation, CodeConflict, CodeIdempotency, CodeForbidden, CodeNotFound:
		if msg := strings.TrimSpace(typed.Message()); msg != "" {
			return msg
		}
		return MetadataFor(typed.Code()).PublicMessage
	default:
		return genericFailure(resource)
	}
}

func genericFailure(resource string) string {
	resource = strings.TrimSpace(resource)
	if resource == "" {
		return "something went wrong"
	}
	return "failed to load " + resource
}
