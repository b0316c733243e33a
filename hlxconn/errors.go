package hlxconn

import (
	"errors"
	"net"
	"syscall"

	"github.com/gerickson-labs/hlxgo/model"
)

// Transport-level terminal-state sentinel errors (spec §7).
var (
	ErrConnectionRefused  = errors.New("connection refused")
	ErrConnectionReset    = errors.New("connection reset")
	ErrTimeout            = errors.New("timeout")
	ErrUnknown            = errors.New("unknown transport error")
	ErrInitializationFailed = errors.New("initialization failed")

	// ErrAlreadyDisconnected is returned by a second Close/Disconnect call;
	// it reuses model's idempotent-operation sentinel since spec §7 treats
	// connection-kind errors as part of one system-wide error taxonomy.
	ErrAlreadyDisconnected = model.ErrValueAlreadySet
)

// classifyError maps a raw net/syscall error to one of the sentinel kinds
// above, for delegation as DidNotConnect/DidDisconnect(kind).
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ErrConnectionRefused
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, net.ErrClosed) {
		return ErrConnectionReset
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return ErrUnknown
}
