// Package notify defines keyspace events and their delivery.
//
// Every mutating command reports what it changed as an Event: the event class (set, expire,
// setrange, incrby, incrbyfloat, append, del, gset, gdel), the key and the id of the database.
// Commands hand events to a Sink. The Dispatcher sink decouples delivery from command execution
// through a lock-free queue, counts events per class (skv_keyspace_events_total) and fans them
// out to subscribers. Nop discards events and Recorder keeps them for inspection.
package notify
