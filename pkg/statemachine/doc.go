// Package statemachine implements a small concurrency-safe finite state
// machine used to track component lifecycles.
//
// States and events are anything with a Name; StringState and StringEvent
// cover the common case. Transitions are registered at construction time:
//
//	const (
//		idle       = statemachine.StringState("idle")
//		subscribed = statemachine.StringState("subscribed")
//		subscribe  = statemachine.StringEvent("subscribe")
//	)
//
//	m := statemachine.MustNew(idle,
//		statemachine.WithTransition(idle, subscribed, subscribe),
//		statemachine.WithHook(func(from, to statemachine.State, _ statemachine.Event) {
//			log.Printf("%s -> %s", from.Name(), to.Name())
//		}),
//	)
//
//	if err := m.Fire(ctx, subscribe); statemachine.IsNoTransitionAvailableError(err) {
//		// already subscribed
//	}
//
// Guards veto a transition at fire time; actions run before the state
// changes and abort it on error; hooks observe committed transitions and
// run outside the lock.
package statemachine
