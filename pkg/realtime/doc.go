// Package realtime delivers notification insert events and turns them into
// store merges.
//
// A Channel carries Events (id plus owner) for a Topic. Four channels are
// provided: MemoryChannel for a single process, PostgresChannel fed by the
// notifications insert trigger through LISTEN/NOTIFY, RedisChannel over
// pub/sub and KafkaChannel over a topic keyed by owner. Channels that can
// publish also satisfy notifications.Deliverer through NewDeliverer.
//
// An Ingestor subscribes one user, re-reads every announced row through a
// Hydrator, merges it into a Sink and shows a Toast. Its lifecycle is a
// small state machine:
//
//	idle -> subscribing -> subscribed -> closed
//	           \-> idle (subscribe failed)
//
// Channels that lose their connection call Handler.OnReconnect once they
// are back; the ingestor answers with its resync hook because missed
// events are never replayed.
package realtime
