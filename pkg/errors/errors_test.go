package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusUnprocessableEntity, detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized},
		{code: CodeForbidden, status: http.StatusForbidden},
		{code: CodeNotFound, status: http.StatusNotFound},
		{code: CodeConflict, status: http.StatusConflict},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, retryable: true},
		{code: CodeInternal, status: http.StatusInternalServerError, retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, retryable: true, detailsOK: true},
		{code: CodeCanceled, status: 499},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}
	base.WithDetails(map[string]any{"field": "foo"})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if As(fmt.Errorf("outer: %w", wrapped)).Code() != CodeConflict {
		t.Fatalf("As should find wrapped typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestFromStatus(t *testing.T) {
	tests := map[int]Code{
		http.StatusUnauthorized:        CodeUnauthorized,
		http.StatusForbidden:           CodeForbidden,
		http.StatusNotFound:            CodeNotFound,
		http.StatusUnprocessableEntity: CodeValidation,
		http.StatusBadRequest:          CodeValidation,
		http.StatusTooManyRequests:     CodeRateLimit,
		http.StatusBadGateway:          CodeDependency,
		http.StatusTeapot:              CodeInternal,
	}
	for status, want := range tests {
		if got := FromStatus(status, "").Code(); got != want {
			t.Fatalf("status %d expected %s got %s", status, want, got)
		}
	}
	if msg := FromStatus(http.StatusNotFound, "").Message(); msg != "resource not found" {
		t.Fatalf("expected public message fallback, got %q", msg)
	}
}

func TestFlattenFieldErrors(t *testing.T) {
	got := FlattenFieldErrors(map[string][]string{
		"email":  {"The email field is required."},
		"amount": {"The amount must be positive.", " "},
	})
	want := "The amount must be positive. The email field is required."
	if got != want {
		t.Fatalf("expected %q got %q", want, got)
	}
	if FlattenFieldErrors(nil) != "" {
		t.Fatalf("expected empty string for no fields")
	}
}

func TestCancellationClassification(t *testing.T) {
	if !IsCanceled(context.Canceled) {
		t.Fatalf("context.Canceled must be a cancellation")
	}
	if !IsCanceled(fmt.Errorf("get: %w", context.Canceled)) {
		t.Fatalf("wrapped context.Canceled must be a cancellation")
	}
	if IsCanceled(context.DeadlineExceeded) {
		t.Fatalf("deadline expiry is a transport failure")
	}
	if UserMessage(context.Canceled, "properties") != "" {
		t.Fatalf("canceled errors must never produce a user message")
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(CodeUnauthorized, "Unauthenticated."), "wishlist"); got != "please log in to continue" {
		t.Fatalf("unexpected unauthorized message %q", got)
	}
	if got := UserMessage(New(CodeValidation, "The amount must be positive."), "withdrawals"); got != "The amount must be positive." {
		t.Fatalf("unexpected validation message %q", got)
	}
	if got := UserMessage(stdErrors.New("dial tcp: refused"), "properties"); got != "failed to load properties" {
		t.Fatalf("unexpected transport message %q", got)
	}
	if got := UserMessage(New(CodeDependency, "upstream"), "reviews"); got != "failed to load reviews" {
		t.Fatalf("unexpected dependency message %q", got)
	}
}

func TestDumpChain(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("boom"), "list notifications")
	d := Dump(err)
	if d.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %s", d.Code)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected 2 chain entries, got %d", len(d.Chain))
	}
}
