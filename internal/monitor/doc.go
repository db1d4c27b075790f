// Package monitor samples which process holds input focus and reports
// transitions into and out of a set of target processes.
//
// A Poller runs behind a Spawner (a goroutine, or a child process that
// speaks CBOR over its stdio) and publishes every successful sample to a
// StateChannel and every transition to an EventChannel. A Controller owns
// both channels, the target set and the lifecycle of the poller and of the
// dispatcher that hands transitions to the registered InterruptFunc.
package monitor
