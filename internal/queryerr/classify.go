// Package queryerr classifies errors from the query engine into retryable
// and non-retryable categories. Classification is read-only: source errors
// are never mutated or wrapped.
package queryerr

import (
	"errors"
	"strings"
)

// Classification labels an error by how it should be handled.
type Classification int

const (
	// Unknown covers error shapes the classifier does not recognize.
	// Callers treat Unknown as retryable: retrying a permanent failure
	// wastes a few attempts, giving up on a transient one loses work.
	Unknown Classification = iota

	// Transient errors are expected to resolve with time (rate limiting,
	// network blips, temporary unavailability).
	Transient

	// Permanent errors will not resolve by retrying (bad auth, malformed
	// query, missing table).
	Permanent
)

func (c Classification) String() string {
	switch c {
	case Transient:
		return "transient"
	case Permanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// PermanenceFlagger is implemented by errors whose source service states
// outright whether the failure is permanent. When the flag is present it
// outranks status codes and message heuristics.
type PermanenceFlagger interface {
	PermanentFlag() (permanent, ok bool)
}

// StatusCoder is implemented by errors that carry an HTTP status code
// directly, such as a failed query response.
type StatusCoder interface {
	HTTPStatusCode() int
}

// ResponseStatusCoder is implemented by errors that wrap a lower-level
// response carrying its own status code.
type ResponseStatusCoder interface {
	ResponseStatusCode() (int, bool)
}

var transientStatus = map[int]bool{
	408: true, // request timeout
	429: true, // too many requests
	502: true,
	503: true,
	504: true,
	520: true,
	521: true,
	522: true,
	523: true,
	524: true,
}

var permanentStatus = map[int]bool{
	400: true,
	401: true,
	403: true,
	404: true,
	405: true,
	406: true,
	409: true,
	410: true,
	413: true,
	414: true,
	415: true,
	422: true,
}

// Permanent phrases are checked before transient ones: a message carrying
// both "rate limit" and "authentication failed" is almost certainly a
// permanent failure described verbosely, and retrying it cannot help.
var permanentPhrases = []string{
	"authentication failed",
	"authorization failed",
	"unauthorized",
	"access denied",
	"forbidden",
	"invalid credentials",
	"invalid token",
	"syntax error",
	"semantic error",
	"syntax is incorrect",
	"validation error",
	"schema error",
	"does not exist",
	"doesn't exist",
	"could not be resolved",
	"not found",
	"malformed",
	"invalid parameter",
	"invalid argument",
	"invalid query",
	"bad request",
}

var transientPhrases = []string{
	"timeout",
	"timed out",
	"deadline exceeded",
	"connection reset",
	"connection refused",
	"connection aborted",
	"connection closed",
	"broken pipe",
	"no such host",
	"dns",
	"throttl",
	"rate limit",
	"too many requests",
	"try again",
	"temporarily unavailable",
	"temporary failure",
	"service unavailable",
	"server busy",
	"unavailable",
	"eof",
}

// Classify maps an arbitrary error to a Classification. It is total: any
// input, including nil, yields a result and the function never panics.
//
// A service-supplied permanence flag wins outright. After that a status
// code is probed (directly on the error, then on a nested response), and
// a match in either fixed status set short-circuits. Only when no code is
// present does the lowercased message get scanned against the phrase
// lists.
func Classify(err error) Classification {
	if err == nil {
		return Unknown
	}

	var flagged PermanenceFlagger
	if errors.As(err, &flagged) {
		if permanent, ok := flagged.PermanentFlag(); ok {
			if permanent {
				return Permanent
			}
			return Transient
		}
	}

	if code, ok := statusCode(err); ok {
		if transientStatus[code] {
			return Transient
		}
		if permanentStatus[code] {
			return Permanent
		}
	}

	msg := strings.ToLower(err.Error())
	for _, phrase := range permanentPhrases {
		if strings.Contains(msg, phrase) {
			return Permanent
		}
	}
	for _, phrase := range transientPhrases {
		if strings.Contains(msg, phrase) {
			return Transient
		}
	}

	return Unknown
}

// IsRetryable reports whether an error with the given classification
// should be retried.
func IsRetryable(c Classification) bool {
	return c != Permanent
}

// statusCode extracts a numeric status code from the error chain,
// probing the direct carrier before the nested response carrier.
func statusCode(err error) (int, bool) {
	var direct StatusCoder
	if errors.As(err, &direct) {
		if code := direct.HTTPStatusCode(); code != 0 {
			return code, true
		}
	}

	var nested ResponseStatusCoder
	if errors.As(err, &nested) {
		if code, ok := nested.ResponseStatusCode(); ok && code != 0 {
			return code, true
		}
	}

	return 0, false
}
