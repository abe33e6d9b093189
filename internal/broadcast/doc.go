// Package broadcast fans channel events out to live subscribers.
//
// The Hub is a plain registry with no internal locking: the state
// coordinator owns it and serializes all access under its own mutex.
// Per-connection write goroutines (clientWriter) absorb slow WebSocket
// clients so a stalled socket never blocks a publish.
package broadcast
