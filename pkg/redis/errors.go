package redis

import "errors"

var (
	ErrInvalidConnectionURL = errors.New("redis: invalid connection URL")
	ErrNotReady             = errors.New("redis: server not ready before deadline")
	ErrEmptyConnectionURL   = errors.New("redis: empty connection URL")
	ErrHealthcheckFailed    = errors.New("redis: healthcheck failed")
)
