package errors

import (
	"fmt"
)

// Document kinds named by ParseError and ValidationError.
const (
	DocumentSettings     = "settings"
	DocumentPluginConfig = "plugin configuration"
	DocumentApplyConfig  = "apply configuration"
	DocumentTranscript   = "transcript"
)

// ParseError reports a settings file, plugin configuration or transcript
// that could not be read or decoded.
type ParseError struct {
	Document string
	Path     string
	Line     int
	Err      error
}

// NewParseError constructs a ParseError. line is 0 when unknown.
func NewParseError(document, path string, line int, err error) error {
	return &ParseError{Document: document, Path: path, Line: line, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	location := e.Path
	if e.Line > 0 {
		location = fmt.Sprintf("%s:%d", e.Path, e.Line)
	}
	return fmt.Sprintf("cannot read %s %s: %v", documentOrDefault(e.Document), location, e.Err)
}

func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError reports a decoded document whose Field breaks a rule.
type ValidationError struct {
	Document string
	Field    string
	Message  string
	Err      error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(document, field, message string, err error) error {
	return &ValidationError{Document: document, Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s %s", documentOrDefault(e.Document), e.Field, e.Message)
	}
	return fmt.Sprintf("invalid %s: %s", documentOrDefault(e.Document), e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func documentOrDefault(document string) string {
	if document == "" {
		return "document"
	}
	return document
}

// ExecutionError represents a failure raised while a pipeline component ran.
type ExecutionError struct {
	Component string
	Stage     string
	Err       error
}

// NewExecutionError constructs an ExecutionError for the given component and
// processing stage (pre, process, post).
func NewExecutionError(component, stage string, err error) error {
	return &ExecutionError{Component: component, Stage: stage, Err: err}
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Component != "" && e.Stage != "":
		return fmt.Sprintf("execution error on component %s (%s): %v", e.Component, e.Stage, e.Err)
	case e.Component != "":
		return fmt.Sprintf("execution error on component %s: %v", e.Component, e.Err)
	default:
		return fmt.Sprintf("execution error: %v", e.Err)
	}
}

// Unwrap exposes the root error.
func (e *ExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PluginError reports a plugin that could not be loaded or scheduled.
// Stage names the step that failed (resolve, bind, instantiate, schedule).
type PluginError struct {
	Plugin string
	Stage  string
	Err    error
}

// NewPluginError constructs a PluginError for the given plugin and stage.
func NewPluginError(plugin, stage string, err error) error {
	return &PluginError{Plugin: plugin, Stage: stage, Err: err}
}

func (e *PluginError) Error() string {
	if e == nil {
		return ""
	}
	if e.Stage != "" {
		return fmt.Sprintf("plugin %s cannot %s: %v", e.Plugin, e.Stage, e.Err)
	}
	return fmt.Sprintf("plugin %s: %v", e.Plugin, e.Err)
}

// Unwrap exposes the underlying error.
func (e *PluginError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
