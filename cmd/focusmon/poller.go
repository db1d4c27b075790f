package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"focusmon/internal/logging"
	"focusmon/internal/monitor"
	"focusmon/pkg/detector"
)

// pollerCommand is the child side of monitor.ProcessSpawner: the PollerSpec
// arrives on stdin, frames leave on stdout and logs go to stderr
func pollerCommand(args []string) error {
	fs := newFlagSet("poller")
	provider := fs.String("provider", detector.ProviderAuto, "window provider")
	level := fs.String("log-level", "info", "log level")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := logging.New(os.Stderr, "text", *level).With("pid", os.Getpid())

	det, err := detector.New(*provider, logger)
	if err != nil {
		return err
	}
	defer det.Close()

	// The parent owns shutdown; a terminal ^C reaching the process group
	// must not kill the poller before the parent closes stdin.
	signal.Ignore(syscall.SIGINT)

	return monitor.ServePoller(context.Background(), os.Stdin, os.Stdout, det, logger)
}
