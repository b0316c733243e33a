package command

import "errors"

// ErrTimeout is returned to a SendCommand completion when no matching
// response arrives within the exchange's timeout.
var ErrTimeout = errors.New("command: exchange timed out")
