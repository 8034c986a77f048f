package stt

import (
	"fmt"
	"strings"

	"github.com/lexiqai/media-transcriber/internal/resilience"
)

// ErrorKind is a recognition failure category. The string values match the
// browser speech API codes so UI clients can reuse their handling.
type ErrorKind string

const (
	KindNetwork           ErrorKind = "network"
	KindNotAllowed        ErrorKind = "not-allowed"
	KindServiceNotAllowed ErrorKind = "service-not-allowed"
	KindAborted           ErrorKind = "aborted"
	KindOther             ErrorKind = "other"
)

// RecognitionError is a classified recognizer failure
type RecognitionError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *RecognitionError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *RecognitionError) Unwrap() error {
	return e.Err
}

// NewError builds a RecognitionError of the given kind
func NewError(kind ErrorKind, message string) *RecognitionError {
	return &RecognitionError{Kind: kind, Message: message}
}

// ParseErrorKind maps an error code to its kind. Unknown codes are KindOther.
func ParseErrorKind(code string) ErrorKind {
	switch ErrorKind(strings.ToLower(strings.TrimSpace(code))) {
	case KindNetwork:
		return KindNetwork
	case KindNotAllowed:
		return KindNotAllowed
	case KindServiceNotAllowed:
		return KindServiceNotAllowed
	case KindAborted:
		return KindAborted
	default:
		return KindOther
	}
}

// ClassifyError wraps a backend error into a RecognitionError
func ClassifyError(err error) *RecognitionError {
	if err == nil {
		return nil
	}
	if re, ok := err.(*RecognitionError); ok {
		return re
	}

	kind := KindOther
	switch resilience.Classify(err) {
	case resilience.FailureNetwork:
		kind = KindNetwork
	case resilience.FailureAuth:
		kind = KindNotAllowed
	case resilience.FailureUnavailable:
		kind = KindServiceNotAllowed
	case resilience.FailureCancelled:
		kind = KindAborted
	}
	return &RecognitionError{Kind: kind, Message: err.Error(), Err: err}
}
