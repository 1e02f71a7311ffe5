// Package errors defines the service error taxonomy of the query layer.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode identifies a class of service error.
type ErrorCode string

const (
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeInternal        ErrorCode = "INTERNAL"
)

// ParamCode identifies why a single request parameter was rejected.
type ParamCode string

const (
	ParamInvalid         ParamCode = "invalidParam"
	ParamUnknown         ParamCode = "unknownParamUsage"
	ParamCountExceedsMax ParamCode = "paramCountExceedsMax"
	ParamInvalidUsage    ParamCode = "invalidParamUsage"
)

const (
	invalidParamMessagePrefix = "Invalid parameter: "
	unknownParamMessagePrefix = "Unknown query parameter: "
)

// BadParam describes one rejected request parameter.
type BadParam struct {
	Key     string
	Code    ParamCode
	Count   int
	Max     int
	Message string
}

// Error renders the parameter problem the way it is reported to clients.
func (p BadParam) Error() string {
	switch {
	case p.Message != "":
		return p.Message
	case p.Code == ParamUnknown:
		return unknownParamMessagePrefix + p.Key
	case p.Code == ParamCountExceedsMax:
		return fmt.Sprintf("%s: parameter values count %d exceeds maximum number %d allowed", p.Key, p.Count, p.Max)
	default:
		return invalidParamMessagePrefix + p.Key
	}
}

// ServiceError is the error value returned across package boundaries.
type ServiceError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Params     []BadParam
	Err        error
}

func (e *ServiceError) Error() string {
	if len(e.Params) == 0 {
		return e.Message
	}
	messages := make([]string, 0, len(e.Params))
	for _, p := range e.Params {
		messages = append(messages, p.Error())
	}
	return strings.Join(messages, "; ")
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Messages lists one message per rejected parameter, or the single message.
func (e *ServiceError) Messages() []string {
	if len(e.Params) == 0 {
		return []string{e.Message}
	}
	messages := make([]string, 0, len(e.Params))
	for _, p := range e.Params {
		messages = append(messages, p.Error())
	}
	return messages
}

// InvalidArgument reports malformed, out of range or contradictory input.
func InvalidArgument(format string, args ...interface{}) *ServiceError {
	return &ServiceError{
		Code:       CodeInvalidArgument,
		Message:    fmt.Sprintf(format, args...),
		HTTPStatus: http.StatusBadRequest,
	}
}

// InvalidParam reports a single invalid parameter by name.
func InvalidParam(key string) *ServiceError {
	return InvalidParameters([]BadParam{{Key: key, Code: ParamInvalid}})
}

// InvalidParameters aggregates every rejected parameter into one error.
func InvalidParameters(params []BadParam) *ServiceError {
	return &ServiceError{
		Code:       CodeInvalidArgument,
		Message:    "Invalid request parameters",
		HTTPStatus: http.StatusBadRequest,
		Params:     params,
	}
}

// NotFound reports a missing resource. Only the storage and service layers
// raise it.
func NotFound(resource string) *ServiceError {
	return &ServiceError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

// Internal wraps an unexpected failure.
func Internal(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsInvalidArgument reports whether err carries CodeInvalidArgument.
func IsInvalidArgument(err error) bool {
	return hasCode(err, CodeInvalidArgument)
}

// IsNotFound reports whether err carries CodeNotFound.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

func hasCode(err error, code ErrorCode) bool {
	var serviceErr *ServiceError
	if stderrors.As(err, &serviceErr) {
		return serviceErr.Code == code
	}
	return false
}
