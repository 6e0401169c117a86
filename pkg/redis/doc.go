// Package redis connects to Redis and exposes a prefixed key/value Storage
// used to keep notification read state outside the process.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	store := redis.NewStorage(client, cfg)
//	l := ledger.New(store, ledger.WithNamespace("user-42:"))
//
// Healthcheck returns a probe suitable for readiness endpoints. Connection
// errors are joined with the package sentinels (ErrNotReady,
// ErrInvalidConnectionURL) so callers can match them with errors.Is.
package redis
