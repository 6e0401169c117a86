// Package inbox is the notification center a UI talks to.
//
// A Center composes the read ledger, the notifications gateway and store,
// and the realtime ingestor for one user. It exposes the reconciled list,
// the unread and new-since-last-visit counters with a localized message,
// and the mutations (mark read or unread, mark all read, delete). Every
// change is published as a Snapshot to subscribers.
//
//	c, err := inbox.NewCenter(gateway, channel, ledger.New(storage),
//		inbox.WithResolver(identity.Static(userID)))
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	if err := c.Start(ctx); err != nil {
//		return err
//	}
//	_ = c.Load(ctx)
//	fmt.Println(c.NewSinceLastVisitMessage()) // "2 nuevas desde tu última visita"
//
// Sessions keeps a bounded set of Centers for a server process, and Handler
// serves them over HTTP with a server-sent event stream for live updates.
package inbox
