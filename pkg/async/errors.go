package async

import (
	"errors"
	"fmt"
)

var (
	ErrTimeout = errors.New("async: operation timed out waiting for future completion")
	ErrPanic   = errors.New("async: computation panicked")
)

func panicError(r any) error {
	return fmt.Errorf("%w: %v", ErrPanic, r)
}
