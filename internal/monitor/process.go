package monitor

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/pkg/errors"

	"focusmon/pkg/window"
)

type frameKind uint8

const (
	frameState frameKind = iota + 1
	frameEvent
)

// frame is one message from a poller process to its parent.
type frame struct {
	Kind  frameKind          `cbor:"kind"`
	State *window.WindowInfo `cbor:"state,omitempty"`
	Event *EdgeEvent         `cbor:"event,omitempty"`
}

// ProcessSpawner runs each poller in a child process built by Command.
// The child must call ServePoller on its stdin and stdout.
//
// The parent writes the PollerSpec as a single CBOR item, then reads frames
// until the child exits. Closing the child's stdin asks it to stop.
type ProcessSpawner struct {
	Command func() *exec.Cmd
	Logger  *slog.Logger
}

func (s ProcessSpawner) Spawn(ctx context.Context, spec PollerSpec, sink Sink) (Worker, error) {
	if s.Command == nil {
		return nil, errors.New("process spawner has no command")
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cmd := s.Command()
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open poller stdin")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open poller stdout")
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "failed to start poller process")
	}

	if err := newEncoder(stdin).Encode(spec); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, errors.Wrap(err, "failed to send poller spec")
	}

	w := &processWorker{
		cmd:    cmd,
		stdin:  stdin,
		done:   make(chan struct{}),
		logger: logger.With("component", "poller_process", "pid", cmd.Process.Pid),
	}
	go w.relay(ctx, stdout, sink)
	return w, nil
}

type processWorker struct {
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	done     chan struct{}
	stopOnce sync.Once
	logger   *slog.Logger
}

// relay feeds frames into sink, then reaps the child.
func (w *processWorker) relay(ctx context.Context, stdout io.Reader, sink Sink) {
	defer close(w.done)

	dec := newDecoder(stdout)
	for {
		var f frame
		if err := dec.Decode(&f); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				w.logger.Warn("bad frame from poller process, killing it", "error", err)
				w.cmd.Process.Kill()
			}
			break
		}
		if ctx.Err() != nil {
			continue
		}

		switch {
		case f.Kind == frameState && f.State != nil:
			sink.PublishState(*f.State)
		case f.Kind == frameEvent && f.Event != nil:
			sink.PublishEvent(*f.Event)
		default:
			w.logger.Debug("ignoring unknown frame", "kind", f.Kind)
		}
	}

	if err := w.cmd.Wait(); err != nil {
		w.logger.Debug("poller process exited", "error", err)
	}
}

func (w *processWorker) Done() <-chan struct{} { return w.done }

func (w *processWorker) Stop() {
	w.stopOnce.Do(func() {
		w.stdin.Close()
	})
}

func (w *processWorker) Kill() error {
	w.Stop()
	if err := w.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return errors.Wrap(err, "failed to kill poller process")
	}
	return nil
}

// ServePoller is the child side of ProcessSpawner. It reads the PollerSpec from r,
// polls detector and writes frames to w until r reaches EOF or ctx ends.
func ServePoller(ctx context.Context, r io.Reader, w io.Writer, detector window.Detector, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	var spec PollerSpec
	if err := newDecoder(r).Decode(&spec); err != nil {
		return errors.Wrap(err, "failed to read poller spec")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Nothing else is sent after the PollerSpec; EOF means the parent wants us gone.
	go func() {
		io.Copy(io.Discard, r)
		cancel()
	}()

	out := &frameWriter{enc: newEncoder(w), cancel: cancel}
	NewPoller(detector, spec, logger).Run(ctx, out)
	return out.err
}

// frameWriter is the Sink of a poller running in a child process.
type frameWriter struct {
	enc    interface{ Encode(any) error }
	cancel context.CancelFunc
	err    error
}

func (f *frameWriter) PublishState(info window.WindowInfo) {
	f.write(frame{Kind: frameState, State: &info})
}

func (f *frameWriter) PublishEvent(event EdgeEvent) {
	f.write(frame{Kind: frameEvent, Event: &event})
}

func (f *frameWriter) write(fr frame) {
	if f.err != nil {
		return
	}
	if err := f.enc.Encode(fr); err != nil {
		f.err = errors.Wrap(err, "failed to write frame")
		f.cancel()
	}
}
