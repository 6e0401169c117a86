// Package cache provides small generic in-memory containers with bounded size.
//
// LRU is a thread-safe least-recently-used cache with an eviction callback,
// used to keep per-topic broadcasters and per-user sessions under a limit and
// to close whatever falls out:
//
//	sessions := cache.NewLRU[string, *inbox.Center](1000)
//	sessions.OnEvict(func(_ string, c *inbox.Center) { _ = c.Close() })
//	center, _ := sessions.GetOrCreate(userID, func() *inbox.Center { return build(userID) })
//
// BoundedSet is an insertion-ordered set that evicts its oldest element when
// full. It backs the device-local "seen" ledger, which must never grow past a
// fixed number of notification ids.
package cache
