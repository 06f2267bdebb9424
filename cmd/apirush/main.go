// cmd/apirush/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"apirush/internal/client"
	"apirush/internal/config"
	"apirush/internal/metrics"
	"apirush/internal/monitoring"
	"apirush/internal/proxy"
	"apirush/internal/retry"
	"apirush/internal/runner"
	"apirush/internal/storage"
	"apirush/internal/utils"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var (
		configPath   = flag.String("config", "", "path to the YAML configuration file")
		validateOnly = flag.Bool("validate", false, "validate the configuration and exit")
		verbose      = flag.Bool("v", false, "enable debug logging")
		history      = flag.Int("history", 0, "print the last N persisted runs and exit")
		showVersion  = flag.Bool("version", false, "print version information and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("apirush %s (built %s)\n", version, buildTime)
		return
	}
	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "error: -config is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	level := cfg.LogLevel
	if *verbose {
		level = "debug"
	}
	utils.SetupLogging(level, cfg.LogJSON)

	if *validateOnly {
		fmt.Printf("configuration %q is valid\n", *configPath)
		return
	}
	if *history > 0 {
		if err := printHistory(cfg, *history); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := proxy.NewFromConfig(cfg.Proxy)
	if err != nil {
		return fmt.Errorf("failed to build proxy provider: %w", err)
	}
	if provider != nil {
		defer provider.Close()
	}

	httpClient := client.New(cfg.Connection)
	defer httpClient.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	r := runner.New(runner.Options{
		Task: client.Request{
			Method: cfg.Task.Method,
			URL:    cfg.Task.URL,
			Body:   []byte(cfg.Task.Body),
			Header: cfg.Task.Header,
		},
		Run:      cfg.Run,
		Policy:   retry.NewPolicyFromConfig(cfg.Retry),
		Provider: provider,
		Client:   httpClient,
		Metrics:  m,
	})

	if cfg.Metrics.Enabled {
		srv := monitoring.NewServer(cfg.Metrics.ListenAddress, m, nil)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	startedAt := time.Now()
	result, err := r.Run(ctx)
	if err != nil {
		return err
	}

	if cfg.Storage.Enabled {
		store, err := storage.Open(cfg.Storage.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open run store: %w", err)
		}
		defer store.Close()
		if _, err := store.SaveRun(cfg.Task.ID, cfg.Task.URL, startedAt, result); err != nil {
			return fmt.Errorf("failed to persist run: %w", err)
		}
	}

	printSummary(result)
	if result.Succeeded == 0 && result.Total() > 0 {
		return fmt.Errorf("no request succeeded")
	}
	return nil
}

func printSummary(result *runner.RunResult) {
	fmt.Printf("run complete in %s\n", result.Elapsed.Round(time.Millisecond))
	fmt.Printf("  succeeded: %d\n", result.Succeeded)
	fmt.Printf("  failed:    %d\n", result.Failed)
	fmt.Printf("  cancelled: %d\n", result.Cancelled)
	fmt.Printf("  attempts:  %d\n", result.Attempts)
	for _, f := range result.Failures {
		fmt.Printf("  request %d failed after %d attempts: %v\n", f.Request, f.Attempts, f.Err)
	}
}

func printHistory(cfg *config.AppConfig, limit int) error {
	if !cfg.Storage.Enabled {
		return fmt.Errorf("storage is not enabled in the configuration")
	}
	store, err := storage.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.RecentRuns(cfg.Task.ID, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}
	for _, rec := range runs {
		fmt.Printf("#%d %s %s ok=%d fail=%d cancel=%d attempts=%d elapsed=%s\n",
			rec.ID, rec.StartedAt.Format(time.RFC3339), rec.TargetURL,
			rec.Succeeded, rec.Failed, rec.Cancelled, rec.Attempts,
			rec.Elapsed.Round(time.Millisecond))
	}
	return nil
}
