package chain

import (
	"context"
	"net"
	"strings"

	"github.com/pkg/errors"
)

// Failure taxonomy for ledger calls. An unreachable endpoint is not the same
// thing as a rejected transaction, and a timed-out wait is neither: the
// transaction may still land later.
var (
	ErrUnavailable = errors.New("chain: rpc endpoint unreachable")
	ErrTxRejected  = errors.New("chain: transaction rejected")
	ErrTxTimeout   = errors.New("chain: no receipt within wait window")
)

// isNonceConflict matches the rejection strings EVM nodes return when the
// submitted nonce is stale or already occupied.
func isNonceConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "nonce too low") ||
		strings.Contains(msg, "nonce too high") ||
		strings.Contains(msg, "already known") ||
		strings.Contains(msg, "replacement transaction underpriced")
}

// isTransport reports whether err looks like a failure to reach the endpoint
// rather than an answer from it.
func isTransport(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "eof")
}

// classifyCall wraps a read-path error into the taxonomy, keeping the remote
// error text.
func classifyCall(err error) error {
	if isTransport(err) {
		return errors.Wrap(ErrUnavailable, err.Error())
	}
	return err
}

// classifySubmit wraps a write-path error into the taxonomy, keeping the
// remote error text.
func classifySubmit(err error) error {
	if isTransport(err) {
		return errors.Wrap(ErrUnavailable, err.Error())
	}
	return errors.Wrap(ErrTxRejected, err.Error())
}
