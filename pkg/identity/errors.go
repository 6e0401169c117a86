package identity

import "errors"

var (
	ErrInvalidToken   = errors.New("identity: invalid token")
	ErrMissingSubject = errors.New("identity: token has no subject")
	ErrEmptySecret    = errors.New("identity: signing secret is empty")
)
