package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"focusmon/internal/config"
	"focusmon/internal/daemon"
	"focusmon/internal/database"
	"focusmon/internal/logging"
	"focusmon/internal/reporter"
	"focusmon/pkg/detector"
	"focusmon/pkg/integrations/hybrid"
)

const stopTimeout = 10 * time.Second

func loadConfig(path string) (*config.Config, error) {
	return config.Load(configPath(path))
}

func openRepository(cfg *config.Config) (*database.Repository, func(), error) {
	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return database.NewRepository(db), func() { db.Close() }, nil
}

func stopCommand(args []string) error {
	fs := newFlagSet("stop")
	path := fs.StringP("config", "c", "", "config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*path)
	if err != nil {
		return err
	}
	dm := daemon.New(cfg.Daemon.PIDFile)

	running, pid, err := dm.IsRunning()
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if !running {
		fmt.Println("Daemon is not running")
		return nil
	}

	fmt.Printf("Stopping daemon (PID: %d)...\n", pid)
	if err := dm.Stop(stopTimeout); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}

	fmt.Println("Daemon stopped successfully")
	return nil
}

func statusCommand(args []string) error {
	fs := newFlagSet("status")
	path := fs.StringP("config", "c", "", "config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*path)
	if err != nil {
		return err
	}
	dm := daemon.New(cfg.Daemon.PIDFile)

	running, pid, err := dm.IsRunning()
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if running {
		fmt.Printf("Status: Running (PID: %d)\n", pid)
	} else {
		fmt.Println("Status: Not running")
	}
	fmt.Printf("Targets: %s\n", strings.Join(cfg.Monitor.Targets, ", "))
	fmt.Printf("Poll Interval: %v\n", cfg.Monitor.PollInterval)
	fmt.Printf("Isolation: %s\n", cfg.Monitor.Isolation)
	fmt.Printf("Database: %s\n", cfg.Database.Path)

	if repo, closeRepo, err := openRepository(cfg); err == nil {
		if latest, err := repo.GetLatestTransition(); err == nil && latest != nil {
			fmt.Printf("Last Transition: %s %s at %s\n", latest.Kind, latest.Target,
				latest.Timestamp.In(cfg.Location()).Format("2006-01-02 15:04:05"))
		}
		closeRepo()
	}

	// The live window is read here rather than from the daemon, so this
	// works even when nothing is running.
	det, err := detector.New(cfg.Monitor.Provider, logging.Console(cfg.Log))
	if err != nil {
		fmt.Printf("\nCould not detect current window: %v\n", err)
		return nil
	}
	defer det.Close()

	if h, ok := det.(*hybrid.Detector); ok {
		fmt.Printf("\n%s", h.GetStatus())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	info, err := det.GetFocusedWindow(ctx)
	if err != nil {
		fmt.Printf("\nCould not detect current window: %v\n", err)
		return nil
	}
	fmt.Printf("\nCurrent Window:\n")
	fmt.Printf("  Process: %s (PID %d)\n", info.ProcessName, info.ProcessID)
	fmt.Printf("  Title: %s\n", info.Title)
	fmt.Printf("  Class: %s\n", info.ClassName)
	fmt.Printf("  Display: %s\n", info.DisplayServer)
	return nil
}

func reportCommand(args []string) error {
	fs := newFlagSet("report")
	path := fs.StringP("config", "c", "", "config file")
	jsonOutput := fs.Bool("json", false, "print the report as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	periodType := "day"
	if fs.NArg() > 0 {
		periodType = fs.Arg(0)
	}

	cfg, err := loadConfig(*path)
	if err != nil {
		return err
	}

	repo, closeRepo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	rep := reporter.New(cfg, repo)
	report, err := rep.GenerateReport(periodType)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if *jsonOutput {
		jsonStr, err := rep.FormatReportJSON(report)
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
		fmt.Println(jsonStr)
		return nil
	}

	fmt.Println(rep.FormatReportText(report))
	return nil
}

func clearCommand(args []string) error {
	fs := newFlagSet("clear")
	path := fs.StringP("config", "c", "", "config file")
	yes := fs.BoolP("yes", "y", false, "do not ask for confirmation")
	olderThan := fs.Duration("older-than", 0, "only delete transitions older than this, e.g. 720h")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *olderThan < 0 {
		return fmt.Errorf("--older-than must be positive")
	}

	cfg, err := loadConfig(*path)
	if err != nil {
		return err
	}

	what := "all recorded transitions"
	if *olderThan > 0 {
		what = fmt.Sprintf("transitions older than %v", *olderThan)
	}

	if !*yes {
		fmt.Printf("This will delete %s. Are you sure? (yes/no): ", what)
		response, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		response = strings.ToLower(strings.TrimSpace(response))
		if response != "yes" && response != "y" {
			fmt.Println("Operation cancelled")
			return nil
		}
	}

	repo, closeRepo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	if *olderThan > 0 {
		n, err := repo.DeleteTransitionsBefore(time.Now().Add(-*olderThan))
		if err != nil {
			return fmt.Errorf("failed to prune database: %w", err)
		}
		fmt.Printf("Deleted %d transitions\n", n)
		return nil
	}

	if err := repo.Clear(); err != nil {
		return fmt.Errorf("failed to clear database: %w", err)
	}

	fmt.Println("Database cleared successfully")
	return nil
}
