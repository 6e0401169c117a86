// Package notifications holds the notification model, its repositories and
// the per-user Store that keeps a reconciled view of the inbox.
//
// # Layers
//
//   - Repository: relational source of truth. MemoryRepository for
//     development and tests, PostgresRepository for production. The
//     Postgres schema ships as embedded goose migrations (Migrations) and
//     includes a trigger that announces every insert on InsertChannel.
//   - Gateway: the only path from the engine to a Repository. It takes the
//     user id on every call, returns neutral results when there is none,
//     and logs and wraps failures.
//   - Store: the single writer of one user's list and counters. Mutations
//     are optimistic and never rolled back.
//   - Dispatcher: the producer side. It inserts through a Writer and then
//     hands the row to a best-effort Deliverer.
//
// # Usage
//
//	repo := notifications.NewMemoryRepository()
//	gw := notifications.NewGateway(repo)
//	store := notifications.NewStore(gw, ledger.New(ledger.NewMemoryStorage()))
//
//	store.Load(ctx, userID)
//	_ = store.RefreshUnreadCount(ctx, userID)
//	state := store.Snapshot()
//
// Realtime inserts are fed to Store.Merge by the realtime package, which
// re-reads each row through Gateway.Get before merging.
package notifications
