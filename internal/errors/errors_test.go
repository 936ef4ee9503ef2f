package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestGlimpseError_Error(t *testing.T) {
	err := &GlimpseError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "capture not found",
	}

	expected := "NOT_FOUND: capture not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("comment is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "comment is required" {
		t.Errorf("Message = %q, want %q", err.Message, "comment is required")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("01HQ")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["identifier"] != "01HQ" {
		t.Errorf("Details[identifier] = %v, want %q", err.Details["identifier"], "01HQ")
	}
}

func TestNewFileNotFound(t *testing.T) {
	err := NewFileNotFound("/tmp/x.png")

	if err.Code != ErrFileNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrFileNotFound)
	}
	if err.Details["path"] != "/tmp/x.png" {
		t.Errorf("Details[path] = %v", err.Details["path"])
	}
}

func TestNewValidationFailed(t *testing.T) {
	err := NewValidationFailed("No text in clipboard")
	if err.Status != 422 {
		t.Errorf("Status = %d, want 422", err.Status)
	}
	if err.Message != "No text in clipboard" {
		t.Errorf("Message = %q", err.Message)
	}

	generic := NewValidationFailed("")
	if generic.Message != "validation failed" {
		t.Errorf("Message = %q, want generic message", generic.Message)
	}
}

func TestNewCorruptRecord(t *testing.T) {
	cause := fmt.Errorf("unexpected end of JSON input")
	err := NewCorruptRecord("/c/clipboard.json", cause)

	if err.Code != ErrCorruptRecord {
		t.Errorf("Code = %q, want %q", err.Code, ErrCorruptRecord)
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected cause to be reachable via errors.Is")
	}
}

func TestNewCancelled(t *testing.T) {
	err := NewCancelled("export")
	if err.Status != 499 {
		t.Errorf("Status = %d, want 499", err.Status)
	}
	if err.Message != "export cancelled" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewPersistence(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewPersistence("failed to write record", cause)

	if err.Code != ErrPersistence {
		t.Errorf("Code = %q, want %q", err.Code, ErrPersistence)
	}
	if err.Message != "failed to write record: disk full" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap() should return cause")
	}
}

func TestNewInternal(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		err := NewInternal(fmt.Errorf("boom"))
		if err.Message != "boom" {
			t.Errorf("Message = %q, want %q", err.Message, "boom")
		}
	})

	t.Run("nil error", func(t *testing.T) {
		err := NewInternal(nil)
		if err.Message != "internal error" {
			t.Errorf("Message = %q, want %q", err.Message, "internal error")
		}
	})
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"matching code", NewNotFound("x"), ErrNotFound, true},
		{"different code", NewNotFound("x"), ErrInternal, false},
		{"wrapped", fmt.Errorf("ctx: %w", NewValidationFailed("bad")), ErrValidationFailed, true},
		{"plain error", fmt.Errorf("plain"), ErrInternal, false},
		{"nil", nil, ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAs(t *testing.T) {
	gErr, ok := As(fmt.Errorf("wrap: %w", NewCancelled("capture")))
	if !ok {
		t.Fatal("expected GlimpseError in chain")
	}
	if gErr.Code != ErrCancelled {
		t.Errorf("Code = %q, want %q", gErr.Code, ErrCancelled)
	}

	if _, ok := As(fmt.Errorf("plain")); ok {
		t.Error("expected no GlimpseError for plain error")
	}
}
