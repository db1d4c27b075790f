package monitor

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusmon/pkg/window"
)

func TestDispatcherDeliversInOrder(t *testing.T) {
	events := NewEventChannel()
	rec := &eventRecorder{}
	var fn InterruptFunc = rec.record

	d := startDispatcher(events, func() InterruptFunc { return fn }, 5*time.Millisecond, discardLogger(), nil)
	defer d.stop(time.Second)

	events.Push(EdgeEvent{Kind: Enter, ProcessName: "POWERPNT.EXE"})
	events.Push(EdgeEvent{Kind: Exit, ProcessName: "POWERPNT.EXE"})

	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, time.Millisecond)
	got := rec.snapshot()
	assert.Equal(t, Enter, got[0].Kind)
	assert.Equal(t, Exit, got[1].Kind)
}

func TestDispatcherSurvivesFailingCallback(t *testing.T) {
	events := NewEventChannel()
	var calls atomic.Int32
	fn := InterruptFunc(func(kind EdgeKind, processName string, info window.WindowInfo) error {
		switch calls.Add(1) {
		case 1:
			panic("automation script crashed")
		case 2:
			return errors.New("broker unreachable")
		default:
			return nil
		}
	})

	d := startDispatcher(events, func() InterruptFunc { return fn }, 5*time.Millisecond, discardLogger(), nil)
	defer d.stop(time.Second)

	for i := 0; i < 3; i++ {
		events.Push(EdgeEvent{Kind: Enter, ProcessName: "A"})
	}

	require.Eventually(t, func() bool { return calls.Load() == 3 }, time.Second, time.Millisecond)
	assert.True(t, d.alive())

	events.Push(EdgeEvent{Kind: Exit, ProcessName: "A"})
	require.Eventually(t, func() bool { return calls.Load() == 4 }, time.Second, time.Millisecond)
}

func TestDispatcherStop(t *testing.T) {
	d := startDispatcher(NewEventChannel(), func() InterruptFunc { return nil }, 5*time.Millisecond, discardLogger(), nil)

	assert.True(t, d.alive())
	assert.True(t, d.stop(time.Second))
	assert.False(t, d.alive())
}

func TestDispatcherStopTimesOutOnSlowCallback(t *testing.T) {
	events := NewEventChannel()
	release := make(chan struct{})
	entered := make(chan struct{})
	fn := InterruptFunc(func(EdgeKind, string, window.WindowInfo) error {
		close(entered)
		<-release
		return nil
	})

	d := startDispatcher(events, func() InterruptFunc { return fn }, 5*time.Millisecond, discardLogger(), nil)
	events.Push(EdgeEvent{Kind: Enter})
	<-entered

	assert.False(t, d.stop(20*time.Millisecond))
	close(release)
	require.Eventually(t, func() bool { return !d.alive() }, time.Second, time.Millisecond)
}

func TestDispatcherStopDropsRestOfBatch(t *testing.T) {
	events := NewEventChannel()
	release := make(chan struct{})
	var calls atomic.Int32
	fn := InterruptFunc(func(EdgeKind, string, window.WindowInfo) error {
		if calls.Add(1) == 1 {
			<-release
		}
		return nil
	})

	for i := 0; i < 3; i++ {
		events.Push(EdgeEvent{Kind: Enter, ProcessName: "A"})
	}
	d := startDispatcher(events, func() InterruptFunc { return fn }, 5*time.Millisecond, discardLogger(), nil)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	assert.False(t, d.stop(20*time.Millisecond))
	assert.True(t, d.stopping())
	close(release)

	require.Eventually(t, func() bool { return !d.alive() }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDispatcherWaitsForPredecessor(t *testing.T) {
	events := NewEventChannel()
	rec := &eventRecorder{}
	var fn InterruptFunc = rec.record
	predecessor := make(chan struct{})

	d := startDispatcher(events, func() InterruptFunc { return fn }, 5*time.Millisecond, discardLogger(), predecessor)
	defer d.stop(time.Second)

	events.Push(EdgeEvent{Kind: Enter, ProcessName: "A"})
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, rec.count())
	assert.False(t, d.stopping())

	close(predecessor)
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, time.Millisecond)
}

func TestDispatcherStoppedBeforePredecessorFinishes(t *testing.T) {
	d := startDispatcher(NewEventChannel(), func() InterruptFunc { return nil }, 5*time.Millisecond, discardLogger(), make(chan struct{}))
	assert.True(t, d.stop(time.Second))
}
