package inbox

import "errors"

var (
	ErrCenterClosed     = errors.New("inbox: center closed")
	ErrMissingGateway   = errors.New("inbox: gateway is required")
	ErrMissingLedger    = errors.New("inbox: ledger is required")
	ErrMissingChannel   = errors.New("inbox: realtime channel is required")
	ErrIdentityRequired = errors.New("inbox: sign in required")
)
