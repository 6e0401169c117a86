// Package ledger keeps the device-local half of notification read state:
// the moment of the user's last visit to the notifications view and a
// bounded set of notification ids the user has already seen on this device.
//
// A Ledger persists both values through a small key/value Storage, so the
// state survives process restarts when a new Ledger is built over the same
// storage. Two keys are written under the configured namespace (default
// "notifications:"):
//
//	notifications:last_visit  JSON timestamp
//	notifications:seen_ids    JSON array of ids, oldest first
//
// The seen set holds at most 100 ids by default; adding one more evicts the
// oldest. Storage failures never surface to callers: a value that cannot be
// read or decoded counts as absent and a failed write is logged.
//
// Storage implementations: MemoryStorage for tests and ephemeral sessions,
// SQLiteStorage for a device-local file, and redis.Storage for shared
// deployments.
package ledger
