package ledger

import "errors"

var (
	ErrOpenDatabase    = errors.New("ledger: failed to open sqlite database")
	ErrMigrateDatabase = errors.New("ledger: failed to prepare sqlite schema")
)
