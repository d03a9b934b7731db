package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewBridgeError(t *testing.T) {
	cause := errors.New("underlying error")
	fixes := []FixAction{{Type: RunCommand, Command: "flow status"}}

	err := NewBridgeError(CommandFailed, "get-def failed", cause, fixes)

	if err.Code != CommandFailed {
		t.Errorf("Code = %v, want %v", err.Code, CommandFailed)
	}
	if err.Message != "get-def failed" {
		t.Errorf("Message = %q, want %q", err.Message, "get-def failed")
	}
	if len(err.SuggestedFixes) != 1 {
		t.Errorf("len(SuggestedFixes) = %d, want 1", len(err.SuggestedFixes))
	}
}

func TestBridgeError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      WorkerUnavailable,
			message:   "flow server did not start",
			cause:     errors.New("exec: no such file"),
			wantParts: []string{"WORKER_UNAVAILABLE", "flow server did not start", "exec: no such file"},
		},
		{
			name:      "without cause",
			code:      NoConfigRoot,
			message:   "no .flowconfig above /tmp/a.js",
			cause:     nil,
			wantParts: []string{"NO_CONFIG_ROOT", "no .flowconfig above /tmp/a.js"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewBridgeError(tt.code, tt.message, tt.cause, nil).Error()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestBridgeError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewBridgeError(InternalError, "something went wrong", cause, nil)

	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}
	if !Is(err, cause) {
		t.Error("Is() should find the cause through the chain")
	}

	if NewBridgeError(ShuttingDown, "closed", nil, nil).Unwrap() != nil {
		t.Error("Unwrap() on error without cause should return nil")
	}
}

func TestBridgeError_WithDetails(t *testing.T) {
	err := NewBridgeError(CommandFailed, "retries exhausted", nil, nil)
	result := err.WithDetails(map[string]int{"attempts": 5})

	if result != err {
		t.Error("WithDetails should return the same error for chaining")
	}
	if err.Details == nil {
		t.Error("Details should be set")
	}
}

func TestCodeOf(t *testing.T) {
	inner := NewBridgeError(CommandFailed, "exit 2", nil, nil)
	wrapped := fmt.Errorf("definition: %w", inner)

	if got := CodeOf(wrapped); got != CommandFailed {
		t.Errorf("CodeOf(wrapped) = %q, want %q", got, CommandFailed)
	}
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
	if got := CodeOf(nil); got != "" {
		t.Errorf("CodeOf(nil) = %q, want empty", got)
	}

	var be *BridgeError
	if !As(wrapped, &be) || be != inner {
		t.Error("As() should unwrap to the inner BridgeError")
	}
}

func TestGetSuggestedFixes(t *testing.T) {
	tests := []struct {
		code    ErrorCode
		wantNil bool
	}{
		{BinaryNotFound, false},
		{NoConfigRoot, false},
		{RootBlacklisted, false},
		{WorkerUnavailable, false},
		{CommandFailed, false},
		{DecodeFailed, true},
		{InternalError, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			fixes := GetSuggestedFixes(tt.code)
			if tt.wantNil && fixes != nil {
				t.Errorf("GetSuggestedFixes(%v) = %v, want nil", tt.code, fixes)
			}
			if !tt.wantNil && len(fixes) == 0 {
				t.Errorf("GetSuggestedFixes(%v) returned no fixes", tt.code)
			}
		})
	}
}

func TestErrorCodes(t *testing.T) {
	codes := []ErrorCode{
		WorkerUnavailable,
		CommandFailed,
		NoConfigRoot,
		BinaryNotFound,
		RootBlacklisted,
		DecodeFailed,
		ShuttingDown,
		ConfigInvalid,
		InternalError,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %v", code)
		}
		seen[code] = true
		if string(code) == "" {
			t.Error("Error code should not be empty")
		}
	}
}
