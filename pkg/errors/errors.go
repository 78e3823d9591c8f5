// Package errors defines the typed error taxonomy shared by the ingestion
// pipeline: every failure a file can encounter while moving through
// discovery, parsing, mapping, and emission is one of a small, fixed set
// of kinds so that internal/fileproc can decide disposition (archive,
// reject, restore, or leave in place) by classification alone.
package errors

import (
	"fmt"
	"runtime"
	"time"
)

// Kind enumerates the failure classes a line's file processor can hit.
type Kind string

const (
	KindReadIO        Kind = "READ_IO"
	KindFileLocked    Kind = "FILE_LOCKED"
	KindParse         Kind = "PARSE"
	KindNoMapping     Kind = "NO_MAPPING"
	KindSQLConfig     Kind = "SQL_CONFIG"
	KindSQLTransient  Kind = "SQL_TRANSIENT"
	KindSQLPermanent  Kind = "SQL_PERMANENT"
	KindDisposeIO     Kind = "DISPOSE_IO"
)

// Severity mirrors the levels the disk logger and logs table record.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityError    Severity = "ERROR"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
)

// AppError is the concrete error type carried across component boundaries.
type AppError struct {
	Kind      Kind
	Component string
	Operation string
	Message   string
	Cause     error
	Severity  Severity
	Metadata  map[string]interface{}
	Timestamp time.Time
	StackTrace string
}

func New(kind Kind, component, operation, message string) *AppError {
	_, file, line, _ := runtime.Caller(1)
	return &AppError{
		Kind:       kind,
		Component:  component,
		Operation:  operation,
		Message:    message,
		Severity:   defaultSeverity(kind),
		Metadata:   make(map[string]interface{}),
		Timestamp:  time.Now(),
		StackTrace: fmt.Sprintf("%s:%d", file, line),
	}
}

func defaultSeverity(k Kind) Severity {
	switch k {
	case KindSQLConfig, KindSQLPermanent:
		return SeverityError
	case KindFileLocked, KindSQLTransient:
		return SeverityWarning
	case KindDisposeIO:
		return SeverityCritical
	default:
		return SeverityError
	}
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Component, e.Operation, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

func (e *AppError) Wrap(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithSeverity(s Severity) *AppError {
	e.Severity = s
	return e
}

func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Is lets errors.Is(err, ErrFileLocked) style sentinels work against Kind.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// ToMap renders the error for structured logrus fields.
func (e *AppError) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"error_kind":      string(e.Kind),
		"error_component": e.Component,
		"error_operation": e.Operation,
		"error_message":   e.Message,
		"error_severity":  string(e.Severity),
		"error_timestamp": e.Timestamp,
	}
	if e.Cause != nil {
		m["error_cause"] = e.Cause.Error()
	}
	for k, v := range e.Metadata {
		m["error_meta_"+k] = v
	}
	return m
}

// Sentinel instances for errors.Is comparisons where no extra context is needed.
var (
	ErrReadIO       = New(KindReadIO, "fileproc", "read", "file read failed")
	ErrFileLocked   = New(KindFileLocked, "fileproc", "settle", "file is locked by another process")
	ErrParse        = New(KindParse, "fileproc", "parse", "file content could not be parsed")
	ErrNoMapping    = New(KindNoMapping, "mapping", "load", "no mapping configured for format")
	ErrSQLConfig    = New(KindSQLConfig, "sqlemit", "config", "sql server configuration missing or disabled")
	ErrSQLTransient = New(KindSQLTransient, "sqlemit", "insert", "sql server connection error")
	ErrSQLPermanent = New(KindSQLPermanent, "sqlemit", "insert", "sql server rejected statement")
	ErrDisposeIO    = New(KindDisposeIO, "fileproc", "dispose", "failed to archive/reject/restore file")
)

// Of builds a new AppError of the given kind wrapping cause, for call
// sites that need their own component/operation/message.
func Of(kind Kind, component, operation, message string, cause error) *AppError {
	e := New(kind, component, operation, message)
	if cause != nil {
		e.Wrap(cause)
	}
	return e
}
