// Package apperr carries coded errors from the API layer to clients.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeSuccess       = 0
	CodeUnknown       = 1000
	CodeInvalidParams = 1001
	CodeNotFound      = 1002

	// upload
	CodeUploadMissing  = 1100
	CodeUploadTooLarge = 1101
	CodeUploadWrite    = 1102

	// run
	CodeRunInProgress    = 1200
	CodeSourceUnreadable = 1201
	CodeNoSignal         = 1202
	CodeNoHighlights     = 1203
	CodeClipExtraction   = 1204
	CodeRunFailed        = 1205
	CodeRunCancelled     = 1206

	// results
	CodeResultsRead = 1300
)

type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

func New(code int, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(code int, message string, cause error) *AppError {
	e := &AppError{Code: code, Message: message, Cause: cause}
	if cause != nil {
		e.Detail = cause.Error()
	}
	return e
}

func Is(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func GetCode(err error) int {
	if err == nil {
		return CodeSuccess
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// HTTPStatus maps an error code to the status the API answers with.
func HTTPStatus(code int) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParams, CodeUploadMissing:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUploadTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeRunInProgress:
		return http.StatusConflict
	case CodeSourceUnreadable, CodeNoSignal, CodeNoHighlights:
		return http.StatusUnprocessableEntity
	case CodeRunCancelled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
