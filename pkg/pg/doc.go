// Package pg connects to PostgreSQL through a pgx pool and applies goose
// migrations from an fs.FS.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, notifications.Migrations, "migrations", cfg, log); err != nil {
//		return err
//	}
//
// Healthcheck returns a readiness probe. Error helpers classify pgx errors
// without leaking driver types to callers.
package pg
