package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// WorkerUnavailable indicates a worker could not be started for a root
	WorkerUnavailable ErrorCode = "WORKER_UNAVAILABLE"
	// CommandFailed indicates a worker invocation exited unsuccessfully
	CommandFailed ErrorCode = "COMMAND_FAILED"
	// NoConfigRoot indicates no marker config was found above a file
	NoConfigRoot ErrorCode = "NO_CONFIG_ROOT"
	// BinaryNotFound indicates the worker binary could not be located
	BinaryNotFound ErrorCode = "BINARY_NOT_FOUND"
	// RootBlacklisted indicates the root previously crashed its worker
	RootBlacklisted ErrorCode = "ROOT_BLACKLISTED"
	// DecodeFailed indicates worker output could not be parsed
	DecodeFailed ErrorCode = "DECODE_FAILED"
	// ShuttingDown indicates the supervisor no longer accepts work
	ShuttingDown ErrorCode = "SHUTTING_DOWN"
	// ConfigInvalid indicates a configuration value is unusable
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
	// InstallTool suggests installing a tool
	InstallTool FixActionType = "install-tool"
)

// InstallMethod represents methods for installing tools
type InstallMethod string

const (
	// Brew installation via Homebrew
	Brew InstallMethod = "brew"
	// NPM installation via npm
	NPM InstallMethod = "npm"
	// Manual installation
	Manual InstallMethod = "manual"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType   `json:"type"`
	Command     string          `json:"command,omitempty"`
	Safe        bool            `json:"safe,omitempty"`
	Description string          `json:"description,omitempty"`
	URL         string          `json:"url,omitempty"`
	Tool        string          `json:"tool,omitempty"`
	Methods     []InstallMethod `json:"methods,omitempty"`
}

// BridgeError carries a stable code, a message and optional suggestions
type BridgeError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error
}

// NewBridgeError creates a new BridgeError
func NewBridgeError(code ErrorCode, message string, cause error, suggestedFixes []FixAction) *BridgeError {
	return &BridgeError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: suggestedFixes,
	}
}

// Error implements the error interface
func (e *BridgeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *BridgeError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *BridgeError) WithDetails(details interface{}) *BridgeError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first BridgeError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var be *BridgeError
	if stderrors.As(err, &be) {
		return be.Code
	}
	return ""
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// New returns a plain error with the given text.
func New(text string) error {
	return stderrors.New(text)
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	BinaryNotFound: {
		{
			Type:        InstallTool,
			Tool:        "flow",
			Description: "Install the Flow CLI or set flow.binary in .flowbridge/config.json",
			Methods:     []InstallMethod{NPM, Brew},
		},
	},
	NoConfigRoot: {
		{
			Type:        RunCommand,
			Command:     "flow init",
			Safe:        true,
			Description: "Create a .flowconfig at the project root",
		},
	},
	RootBlacklisted: {
		{
			Type:        RunCommand,
			Command:     "flowbridge doctor",
			Safe:        true,
			Description: "Inspect the crashed root, then restart flowbridge",
		},
	},
	CommandFailed: {
		{
			Type:        RunCommand,
			Command:     "flow status",
			Safe:        true,
			Description: "Run Flow by hand in the project root to see why the command or server fails",
		},
	},
	WorkerUnavailable: {
		{
			Type:        RunCommand,
			Command:     "flow status",
			Safe:        true,
			Description: "Check whether a Flow server can start for this root",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
