// Package async provides a small generic Future for running a computation
// in its own goroutine and collecting the result later.
//
//	f := async.Async(ctx, id, gateway.Get)
//	n, err := f.AwaitContext(ctx)
//
// Async is context-aware: a context that is already cancelled completes the
// future immediately with the context error. Panics in the computation are
// recovered and surface as ErrPanic. WaitAll collects several futures.
package async
