package ethclient

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
)

// ErrorKind tells a log consumer how to react to a failed request.
type ErrorKind int

const (
	ErrorKindTransient ErrorKind = iota
	ErrorKindRangeTooLarge
	ErrorKindRateLimited
	ErrorKindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindTransient:
		return "transient"
	case ErrorKindRangeTooLarge:
		return "range_too_large"
	case ErrorKindRateLimited:
		return "rate_limited"
	case ErrorKindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// JSON-RPC error codes used by providers for oversized or throttled requests.
const (
	codeLimitExceeded = -32005
	codeRateLimited   = -32029
	codeInvalidParams = -32602
)

var (
	rangeTooLargePatterns = []string{
		"block range",
		"range too large",
		"range is too large",
		"query returned more than",
		"exceeds max block range",
		"too many blocks",
		"response size exceeded",
		"log response size",
		"limit exceeded",
	}
	rateLimitedPatterns = []string{
		"rate limit",
		"too many requests",
		"429",
		"exceeded the quota",
		"request count exceeded",
		"compute units",
	}
)

// ClassifyError maps an rpc failure to an ErrorKind. Structured information
// (sentinel errors, HTTP status, JSON-RPC code) takes precedence, message
// patterns are consulted only when it is inconclusive.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrorKindTransient
	}
	switch {
	case errors.Is(err, ErrInvalidLogsQuery), errors.Is(err, ErrIncompatibleChainID):
		return ErrorKindFatal
	case errors.Is(err, ErrNodeIsNotSynced), errors.Is(err, context.DeadlineExceeded):
		return ErrorKindTransient
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusTooManyRequests:
			return ErrorKindRateLimited
		case httpErr.StatusCode == http.StatusRequestEntityTooLarge:
			return ErrorKindRangeTooLarge
		case httpErr.StatusCode == http.StatusUnauthorized, httpErr.StatusCode == http.StatusForbidden:
			return ErrorKindFatal
		case httpErr.StatusCode >= http.StatusInternalServerError:
			return ErrorKindTransient
		}
		if kind, ok := classifyMessage(string(httpErr.Body)); ok {
			return kind
		}
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.ErrorCode() {
		case codeRateLimited:
			return ErrorKindRateLimited
		case codeLimitExceeded, codeInvalidParams:
			if kind, ok := classifyMessage(rpcErr.Error()); ok {
				return kind
			}
			if rpcErr.ErrorCode() == codeLimitExceeded {
				return ErrorKindRangeTooLarge
			}
		}
	}

	if kind, ok := classifyMessage(err.Error()); ok {
		return kind
	}
	return ErrorKindTransient
}

func classifyMessage(msg string) (ErrorKind, bool) {
	msg = strings.ToLower(msg)
	for _, pattern := range rateLimitedPatterns {
		if strings.Contains(msg, pattern) {
			return ErrorKindRateLimited, true
		}
	}
	for _, pattern := range rangeTooLargePatterns {
		if strings.Contains(msg, pattern) {
			return ErrorKindRangeTooLarge, true
		}
	}
	return ErrorKindTransient, false
}
