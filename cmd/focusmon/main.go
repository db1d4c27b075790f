package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"focusmon/version"
)

const appName = "focusmon"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command, args := os.Args[1], os.Args[2:]

	var err error
	switch command {
	case "start":
		err = startCommand(args)
	case "stop":
		err = stopCommand(args)
	case "status":
		err = statusCommand(args)
	case "report":
		err = reportCommand(args)
	case "clear":
		err = clearCommand(args)
	case "poller":
		err = pollerCommand(args)
	case "version":
		fmt.Printf("%s version %s\n", appName, version.Version)
		fmt.Printf("  commit: %s\n", version.Commit)
		fmt.Printf("  built:  %s\n", version.Date)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %s: %v\n", appName, command, err)
		os.Exit(1)
	}
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(appName+" "+name, pflag.ContinueOnError)
	fs.SortFlags = false
	return fs
}

func printUsage() {
	fmt.Printf(`%s - focus transition monitor

Usage:
  %s <command> [options]

Commands:
  start              Start the monitoring daemon
  stop               Stop the monitoring daemon
  status             Show daemon status and the focused window
  report [period]    Show time spent in targets (period: day, week, month)
  clear              Delete recorded transitions (--older-than DUR to prune)
  version            Show version information
  help               Show this help message

Start options:
  -c, --config PATH           Config file (default %s)
  -t, --target NAME           Target process name, repeatable
      --isolation MODE        Poller isolation: process or inprocess
      --provider NAME         Window provider: auto, x11, wayland, windows
      --poll-interval DUR     Window sampling interval, e.g. 500ms
  -w, --web                   Serve the JSON API
  -p, --port PORT             Web API port
  -f, --foreground            Do not detach; log to stderr

Examples:
  %s start --target POWERPNT.EXE --target firefox
  %s start --web --foreground
  %s report week --json
  %s stop

Environment Variables:
  FOCUSMON_CONFIG            Config file path
  FOCUSMON_DB_PATH           Database file path
  FOCUSMON_TARGETS           Comma separated target process names
  FOCUSMON_POLL_INTERVAL     Poll interval (duration, e.g. 500ms)
  FOCUSMON_ISOLATION         process or inprocess
  FOCUSMON_PROVIDER          auto, x11, wayland or windows
  FOCUSMON_PID_FILE          PID file path
  FOCUSMON_TIMEZONE          Time zone for report periods
  FOCUSMON_WEB_HOST          Web API host
  FOCUSMON_WEB_PORT          Web API port
  FOCUSMON_LOG_LEVEL         debug, info, warn or error
  FOCUSMON_LOG_FILE          Daemon log file

Version: %s
`, appName, appName, defaultConfigHint(), appName, appName, appName, appName, version.Version)
}

func defaultConfigHint() string {
	path := configPath("")
	if home, err := os.UserHomeDir(); err == nil && strings.HasPrefix(path, home) {
		return "~" + strings.TrimPrefix(path, home)
	}
	return path
}
