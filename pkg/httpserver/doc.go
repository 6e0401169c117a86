// Package httpserver runs the daemon's HTTP listener with graceful shutdown.
//
// Run blocks until its context ends, then Shutdown stops accepting
// connections, drains in-flight requests and closes registered dependencies
// in order. Callbacks registered with WithOnShutdown fire as soon as the
// drain starts, which is how long-lived event streams get ended.
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//
//	srv := httpserver.NewFromConfig(cfg,
//		httpserver.WithLogger(log),
//		httpserver.WithOnShutdown(func() { _ = sessions.Close() }),
//		httpserver.WithCloser("postgres", func(context.Context) error { pool.Close(); return nil }),
//	)
//	return srv.Run(ctx, router)
//
// LivenessHandler and ReadinessHandler serve the usual probes; readiness
// runs its checks concurrently and reports each by name.
package httpserver
