package ethclient_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"

	"github.com/gobridge/bridge-points/ethclient"
)

type jsonRPCError struct {
	code int
	msg  string
}

func (e *jsonRPCError) Error() string  { return e.msg }
func (e *jsonRPCError) ErrorCode() int { return e.code }

func TestClassifyError(t *testing.T) {
	t.Parallel()

	for _, test := range []struct {
		Name     string
		Err      error
		Expected ethclient.ErrorKind
	}{
		{"http 429", rpc.HTTPError{StatusCode: 429, Status: "429 Too Many Requests"}, ethclient.ErrorKindRateLimited},
		{"http 413", rpc.HTTPError{StatusCode: 413, Status: "413 Request Entity Too Large"}, ethclient.ErrorKindRangeTooLarge},
		{"http 503", rpc.HTTPError{StatusCode: 503, Status: "503 Service Unavailable"}, ethclient.ErrorKindTransient},
		{"http 401", rpc.HTTPError{StatusCode: 401, Status: "401 Unauthorized"}, ethclient.ErrorKindFatal},
		{"http 400 with range body", rpc.HTTPError{StatusCode: 400, Body: []byte(`{"error":"block range too large"}`)}, ethclient.ErrorKindRangeTooLarge},
		{"wrapped http 429", fmt.Errorf("can't request logs: %w", rpc.HTTPError{StatusCode: 429}), ethclient.ErrorKindRateLimited},
		{"json rpc rate code", &jsonRPCError{-32029, "slow down"}, ethclient.ErrorKindRateLimited},
		{"json rpc limit exceeded", &jsonRPCError{-32005, "query returned more than 10000 results"}, ethclient.ErrorKindRangeTooLarge},
		{"json rpc limit exceeded without text", &jsonRPCError{-32005, "nope"}, ethclient.ErrorKindRangeTooLarge},
		{"json rpc daily quota", &jsonRPCError{-32005, "daily request count exceeded, request rate limited"}, ethclient.ErrorKindRateLimited},
		{"json rpc invalid params range", &jsonRPCError{-32602, "eth_getLogs is limited to a 10,000 range, exceeds max block range"}, ethclient.ErrorKindRangeTooLarge},
		{"plain message range", errors.New("Log response size exceeded"), ethclient.ErrorKindRangeTooLarge},
		{"plain message rate", errors.New("Too Many Requests"), ethclient.ErrorKindRateLimited},
		{"timeout", fmt.Errorf("can't fetch: %w", context.DeadlineExceeded), ethclient.ErrorKindTransient},
		{"not synced", fmt.Errorf("behind: %w", ethclient.ErrNodeIsNotSynced), ethclient.ErrorKindTransient},
		{"invalid query", ethclient.ErrInvalidLogsQuery, ethclient.ErrorKindFatal},
		{"unknown", errors.New("connection reset by peer"), ethclient.ErrorKindTransient},
	} {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			t.Parallel()
			t.Logf("Running sub-test %q", test.Name)
			require.Equal(t, test.Expected, ethclient.ClassifyError(test.Err), test.Err.Error())
		})
	}
}
