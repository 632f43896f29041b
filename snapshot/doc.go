// Package snapshot delivers telemetry snapshots from streams, polled
// commands and websockets.
//
// A document on the wire is either a bare state or an envelope:
//
//	seq: 42
//	time: 2024-05-01T12:00:00Z   # or unix seconds, or time_lo/time_hi
//	state: {...}
//
// Bare states get sequence numbers assigned in arrival order.
package snapshot
