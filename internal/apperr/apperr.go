// Package apperr defines the small error taxonomy every controller and
// handler in this service classifies its failures into, translating the
// source's exception-for-control-flow style into typed Go errors that
// handlers map to HTTP responses at the edge.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a taxonomy bucket and its HTTP mapping.
type Kind string

const (
	KindValidation             Kind = "validation"
	KindNotFound               Kind = "not_found"
	KindApproverNotFound       Kind = "approver_not_found"
	KindApproverConditionFails Kind = "approver_condition_not_met"
	KindApprovalIncomplete     Kind = "approval_incomplete"
	KindUpstreamGenerator      Kind = "upstream_generator_failed"
	KindRender                 Kind = "render_failed"
	KindStorage                Kind = "storage_error"
	KindMalformedDelta         Kind = "malformed_delta"
)

// httpStatus maps each Kind to the status code spec.md §7 assigns it.
var httpStatus = map[Kind]int{
	KindValidation:             http.StatusBadRequest,
	KindNotFound:               http.StatusNotFound,
	KindApproverNotFound:       http.StatusNotFound,
	KindApproverConditionFails: http.StatusBadRequest,
	KindApprovalIncomplete:     http.StatusBadRequest,
	KindUpstreamGenerator:      http.StatusBadGateway,
	KindRender:                 http.StatusInternalServerError,
	KindStorage:                http.StatusInternalServerError,
	KindMalformedDelta:         http.StatusInternalServerError,
}

// Error is the concrete error type every component returns for a
// classified failure. Field is set when the failure names an offending
// request field, per spec.md §7 ("the offending field named where
// possible").
type Error struct {
	Kind    Kind
	Message string
	Field   string
	Cause   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// HTTPStatus returns the status code this error's Kind maps to.
func (e *Error) HTTPStatus() int {
	if s, ok := httpStatus[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func newErr(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Validation builds a KindValidation error naming the offending field.
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Message: message, Field: field}
}

// NotFound builds a KindNotFound error for the named resource.
func NotFound(resource, message string) *Error {
	return &Error{Kind: KindNotFound, Message: message, Field: resource}
}

// ApproverNotFound builds a KindApproverNotFound error.
func ApproverNotFound(message string) *Error {
	return newErr(KindApproverNotFound, message)
}

// ApproverConditionNotMet builds a KindApproverConditionFails error.
func ApproverConditionNotMet(message string) *Error {
	return newErr(KindApproverConditionFails, message)
}

// ApprovalIncomplete builds a KindApprovalIncomplete error.
func ApprovalIncomplete(message string) *Error {
	return newErr(KindApprovalIncomplete, message)
}

// UpstreamGenerator builds a KindUpstreamGenerator error, optionally
// wrapping the underlying transport/HTTP error.
func UpstreamGenerator(message string, cause error) *Error {
	return &Error{Kind: KindUpstreamGenerator, Message: message, Cause: cause}
}

// Render builds a KindRender error.
func Render(message string, cause error) *Error {
	return &Error{Kind: KindRender, Message: message, Cause: cause}
}

// Storage wraps a database error as a KindStorage error.
func Storage(message string, cause error) *Error {
	return &Error{Kind: KindStorage, Message: message, Cause: cause}
}

// MalformedDelta builds a KindMalformedDelta error for a version whose
// delta could not be parsed during reconstruction.
func MalformedDelta(versionID, message string) *Error {
	return &Error{Kind: KindMalformedDelta, Message: message, Field: versionID}
}

// As is a thin wrapper over errors.As for callers that only need the
// *Error out-value, matching the idiom used across the handler layer.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
