package rpcpool

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type codedErr struct{ code int }

func (e codedErr) Error() string { return fmt.Sprintf("rpc error %d", e.code) }
func (e codedErr) RPCCode() int  { return e.code }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		class Class
	}{
		{name: "nil", err: nil, class: ClassTerminal},
		{name: "canceled", err: context.Canceled, class: ClassTerminal},
		{name: "deadline", err: fmt.Errorf("call: %w", context.DeadlineExceeded), class: ClassTransient},
		{name: "net timeout", err: timeoutErr{}, class: ClassTransient},
		{name: "jsonrpc internal", err: codedErr{code: -32603}, class: ClassTransient},
		{name: "jsonrpc server range", err: codedErr{code: -32010}, class: ClassTransient},
		{name: "jsonrpc invalid params", err: codedErr{code: -32602}, class: ClassTerminal},
		{name: "jsonrpc reverted", err: codedErr{code: 3}, class: ClassTerminal},
		{name: "http 502", err: errors.New("http status 502: bad gateway"), class: ClassTransient},
		{name: "rate limited", err: errors.New("http status 429: too many requests"), class: ClassTransient},
		{name: "insufficient funds", err: errors.New("insufficient funds for gas"), class: ClassTerminal},
		{name: "explicit transient", err: Transient(errors.New("weird")), class: ClassTransient},
		{name: "explicit terminal", err: Terminal(errors.New("http status 503")), class: ClassTerminal},
		{name: "unknown", err: errors.New("something odd"), class: ClassTerminal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.class, Classify(tt.err).Class)
		})
	}
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.True(t, IsTimeout(timeoutErr{}))
	assert.True(t, IsTimeout(errors.New("dial tcp: connection refused")))
	assert.True(t, IsTimeout(ErrNoHealthyEndpoint))
	assert.False(t, IsTimeout(errors.New("invalid params")))
	assert.False(t, IsTimeout(nil))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "ok", StatusLabel(nil))
	assert.Equal(t, "timeout", StatusLabel(context.DeadlineExceeded))
	assert.Equal(t, "rate_limited", StatusLabel(errors.New("http status 429: slow down")))
	assert.Equal(t, "server_error", StatusLabel(errors.New("http status 503: down")))
	assert.Equal(t, "network_error", StatusLabel(errors.New("dial tcp: connection refused")))
	assert.Equal(t, "client_error", StatusLabel(errors.New("invalid params")))
}

func TestTransientTerminalNil(t *testing.T) {
	assert.Nil(t, Transient(nil))
	assert.Nil(t, Terminal(nil))
}
