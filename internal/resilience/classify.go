package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
)

// FailureClass groups backend failures by how a caller should react
type FailureClass int

const (
	FailureOther       FailureClass = iota // Unknown, usually transient
	FailureNetwork                         // Connectivity lost; needs the user to retry
	FailureAuth                            // Credentials rejected
	FailureUnavailable                     // Service refuses work (quota, rate limit, outage)
	FailureCancelled                       // Caller cancelled on purpose
)

func (c FailureClass) String() string {
	switch c {
	case FailureNetwork:
		return "network"
	case FailureAuth:
		return "auth"
	case FailureUnavailable:
		return "unavailable"
	case FailureCancelled:
		return "cancelled"
	default:
		return "other"
	}
}

// Classify inspects err (type first, then message) and returns its failure class
func Classify(err error) FailureClass {
	if err == nil {
		return FailureOther
	}
	if errors.Is(err, context.Canceled) {
		return FailureCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return FailureNetwork
	}
	return ClassifyMessage(err.Error())
}

// ClassifyMessage classifies a backend error string
func ClassifyMessage(msg string) FailureClass {
	msg = strings.ToLower(msg)

	// Auth failures
	if containsAny(msg, []string{
		"401",
		"403",
		"unauthorized",
		"forbidden",
		"invalid credentials",
		"permission denied",
		"not allowed",
	}) {
		return FailureAuth
	}

	// Service refusing work (checked before network: "unavailable" overlaps)
	if containsAny(msg, []string{
		"429",
		"503",
		"service unavailable",
		"resource exhausted",
		"too many connections",
		"too many requests",
		"rate limit",
		"insufficient",
	}) {
		return FailureUnavailable
	}

	// Connection and timeout errors
	if containsAny(msg, []string{
		"connection refused",
		"connection reset",
		"connection closed",
		"broken pipe",
		"transport is closing",
		"network is unreachable",
		"no route to host",
		"no such host",
		"deadline exceeded",
		"i/o timeout",
		"timeout",
		"eof",
	}) {
		return FailureNetwork
	}

	if containsAny(msg, []string{"context canceled", "aborted"}) {
		return FailureCancelled
	}

	return FailureOther
}

// IsNetworkError checks if an error is a connectivity failure
func IsNetworkError(err error) bool {
	return err != nil && Classify(err) == FailureNetwork
}

func containsAny(s string, substrings []string) bool {
	for _, substr := range substrings {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}
