package monitor

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusmon/pkg/window"
)

const (
	helperEnv         = "FOCUSMON_HELPER_POLLER"
	helperSequenceEnv = "FOCUSMON_HELPER_SEQUENCE"
	helperModeEnv     = "FOCUSMON_HELPER_MODE"
)

func TestMain(m *testing.M) {
	if os.Getenv(helperEnv) == "1" {
		os.Exit(runHelperPoller())
	}
	os.Exit(m.Run())
}

// runHelperPoller is the child side when the test binary is re-executed
// as a poller process.
func runHelperPoller() int {
	if os.Getenv(helperModeEnv) == "hang" {
		// Ignore the parent entirely; only a kill ends this process.
		time.Sleep(time.Hour)
		return 0
	}

	det := &sequenceDetector{
		names: strings.Split(os.Getenv(helperSequenceEnv), ","),
		cycle: true,
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	if err := ServePoller(context.Background(), os.Stdin, os.Stdout, det, logger); err != nil {
		logger.Error("helper poller failed", "error", err)
		return 1
	}
	return 0
}

func helperSpawner(env ...string) ProcessSpawner {
	return ProcessSpawner{
		Command: func() *exec.Cmd {
			cmd := exec.Command(os.Args[0], "-test.run=^$")
			cmd.Env = append(os.Environ(), helperEnv+"=1")
			cmd.Env = append(cmd.Env, env...)
			return cmd
		},
		Logger: discardLogger(),
	}
}

func TestProcessSpawnerRoundTrip(t *testing.T) {
	opts := testOptions()
	opts.PollInterval = 10 * time.Millisecond
	opts.PollerGrace = 5 * time.Second
	c := NewController(helperSpawner(helperSequenceEnv+"=WINWORD.EXE,POWERPNT.EXE"), opts)
	defer c.Close()

	rec := &eventRecorder{}
	c.RegisterInterruptCallback(rec.record)
	c.AddInterruptTarget("powerpnt.exe")

	require.NoError(t, c.StartMonitoring())
	assert.True(t, c.IsMonitoringActive())

	require.Eventually(t, func() bool { return rec.count() >= 2 }, 10*time.Second, 5*time.Millisecond)
	got := rec.snapshot()
	assert.Equal(t, Enter, got[0].Kind)
	assert.Equal(t, "POWERPNT.EXE", got[0].ProcessName)
	assert.Equal(t, "POWERPNT.EXE - window", got[0].Window.Title)
	assert.False(t, got[0].Window.CapturedAt.IsZero())
	assert.Equal(t, Exit, got[1].Kind)
	assert.Equal(t, "WINWORD.EXE", got[1].Window.ProcessName)

	info, ok := c.CurrentFocusInfo()
	require.True(t, ok)
	assert.Contains(t, []string{"WINWORD.EXE", "POWERPNT.EXE"}, info.ProcessName)

	// Closing stdin is enough; the child must not need the kill.
	start := time.Now()
	c.StopMonitoring()
	assert.Less(t, time.Since(start), opts.PollerGrace)
	assert.False(t, c.IsMonitoringActive())
}

func TestProcessSpawnerKillsUnresponsiveChild(t *testing.T) {
	opts := testOptions()
	opts.PollerGrace = 100 * time.Millisecond
	c := NewController(helperSpawner(helperModeEnv+"=hang"), opts)
	defer c.Close()

	require.NoError(t, c.StartMonitoring())
	assert.True(t, c.IsMonitoringActive())

	start := time.Now()
	c.StopMonitoring()
	assert.False(t, c.IsMonitoringActive())
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestProcessSpawnerStartFailure(t *testing.T) {
	spawner := ProcessSpawner{
		Command: func() *exec.Cmd {
			return exec.Command("/nonexistent/focusmon-poller")
		},
		Logger: discardLogger(),
	}

	_, err := spawner.Spawn(context.Background(), PollerSpec{}, &recordingSink{})
	assert.Error(t, err)

	_, err = ProcessSpawner{}.Spawn(context.Background(), PollerSpec{}, &recordingSink{})
	assert.Error(t, err)
}

func TestServePoller(t *testing.T) {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	det := &sequenceDetector{names: []string{"A", "B"}}
	errc := make(chan error, 1)
	go func() {
		errc <- ServePoller(context.Background(), inR, outW, det, discardLogger())
		outW.Close()
	}()

	require.NoError(t, newEncoder(inW).Encode(PollerSpec{
		Targets:      []string{"a"},
		PollInterval: time.Millisecond,
		RetryBackoff: time.Millisecond,
	}))

	dec := newDecoder(outR)
	var frames []frame
	for len(frames) < 4 {
		var f frame
		require.NoError(t, dec.Decode(&f))
		frames = append(frames, f)
	}

	require.Equal(t, frameState, frames[0].Kind)
	assert.Equal(t, "A", frames[0].State.ProcessName)
	require.Equal(t, frameEvent, frames[1].Kind)
	assert.Equal(t, Enter, frames[1].Event.Kind)
	require.Equal(t, frameState, frames[2].Kind)
	assert.Equal(t, "B", frames[2].State.ProcessName)
	require.Equal(t, frameEvent, frames[3].Kind)
	assert.Equal(t, Exit, frames[3].Event.Kind)
	assert.Equal(t, "A", frames[3].Event.ProcessName)

	// EOF on stdin is the stop signal.
	inW.Close()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ServePoller did not return after stdin closed")
	}
}

func TestServePollerBadSpec(t *testing.T) {
	err := ServePoller(context.Background(), strings.NewReader(""), io.Discard, &sequenceDetector{}, discardLogger())
	assert.Error(t, err)
}

func TestFrameCarriesWindowInfo(t *testing.T) {
	captured := time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC)
	in := frame{
		Kind: frameEvent,
		Event: &EdgeEvent{
			Kind:        Exit,
			ProcessName: "POWERPNT.EXE",
			Window: window.WindowInfo{
				Handle:      0x3a00007,
				Title:       "Quarterly review",
				ClassName:   "PPTFrameClass",
				ProcessID:   4242,
				ProcessName: "WINWORD.EXE",
				CapturedAt:  captured,
			},
			Timestamp: captured,
		},
	}

	var buf strings.Builder
	require.NoError(t, newEncoder(&buf).Encode(in))

	var out frame
	require.NoError(t, newDecoder(strings.NewReader(buf.String())).Decode(&out))
	require.NotNil(t, out.Event)
	assert.Equal(t, Exit, out.Event.Kind)
	assert.Equal(t, in.Event.Window.Handle, out.Event.Window.Handle)
	assert.Equal(t, in.Event.Window.Title, out.Event.Window.Title)
	assert.Equal(t, in.Event.Window.ProcessID, out.Event.Window.ProcessID)
	assert.True(t, captured.Equal(out.Event.Window.CapturedAt), "capture time lost precision")
	assert.True(t, captured.Equal(out.Event.Timestamp))
}
