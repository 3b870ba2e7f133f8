package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"worksched/internal/config"
	"worksched/internal/graph"
	appLog "worksched/internal/log"
	"worksched/internal/schedule"
	"worksched/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	debug      bool
}

// sweepTimeout bounds a single compliance sweep.
const sweepTimeout = 4 * time.Minute

func main() {
	os.Exit(run(os.Args[1:]))
}

// run wires everything together and returns the process exit code, so that
// deferred cleanup (cron stop, context cancel) runs before exiting.
func run(args []string) int {
	appLog.Info("worksched starting", "version", "0.1.0")

	flags, err := parseFlags(args)
	if err != nil {
		return 2
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		return 1
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	level := appLog.ParseLevel(conf.LogLevel)
	if flags.debug {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"max_recurrence_weeks", conf.MaxRecurrenceWeeks,
		"required_weekly_hours", conf.RequiredWeeklyHours,
		"report_cron", conf.ReportCron,
		"program_id", conf.ProgramID,
		"backend", backendName(conf, flags.debug),
		"once", flags.once,
	)

	svc := schedule.NewService(newBackend(conf, flags.debug), schedule.Options{
		Location:            conf.Location(),
		WeekStart:           conf.WeekStartDay(),
		MaxWeeks:            conf.MaxRecurrenceWeeks,
		RequiredWeeklyHours: conf.RequiredWeeklyHours,
	})

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	if flags.once {
		if conf.ProgramID == "" {
			appLog.Error("cannot run sweep", errors.New("program_id is not configured"))
			return 1
		}
		if err := runSweep(ctx, svc, conf.ProgramID); err != nil {
			return 1
		}
		return 0
	}

	if conf.ProgramID != "" {
		c := cron.New(
			cron.WithLocation(conf.Location()),
			cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
		)
		if _, err := c.AddFunc(conf.ReportCron, func() { _ = runSweep(ctx, svc, conf.ProgramID) }); err != nil {
			appLog.Error("invalid report_cron", err, "report_cron", conf.ReportCron)
			return 1
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
		appLog.Info("compliance sweep scheduled", "report_cron", conf.ReportCron, "program_id", conf.ProgramID)
	} else {
		appLog.Warn("program_id not set; compliance sweep disabled")
	}

	if err := web.StartServer(ctx, conf, svc); err != nil {
		appLog.Error("HTTP server error", err)
		return 1
	}

	appLog.Info("worksched exiting")
	return 0
}

func runSweep(ctx context.Context, svc *schedule.Service, programID string) error {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	start := time.Now()
	reports, err := svc.SweepCompliance(ctx, programID)
	if err != nil {
		appLog.Error("compliance sweep finished with errors", err, "program", programID, "reports", len(reports))
		return err
	}
	appLog.Info("compliance sweep ok", "program", programID, "reports", len(reports), "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// newBackend picks the HTTP graph backend, or the in-memory store when no
// backend URL is configured or -debug is set.
func newBackend(conf *config.Config, debug bool) graph.Client {
	if conf.Backend.URL == "" || debug {
		return graph.NewMemory()
	}
	return graph.NewHTTPClient(conf.Backend.URL, conf.Backend.Token, conf.BackendTimeout())
}

func backendName(conf *config.Config, debug bool) string {
	if conf.Backend.URL == "" || debug {
		return "memory"
	}
	return graph.RedactURL(conf.Backend.URL)
}

func parseFlags(args []string) (flagConfig, error) {
	var cfg flagConfig

	fs := flag.NewFlagSet("worksched", flag.ContinueOnError)
	fs.StringVar(&cfg.configPath, "config", "/etc/worksched/config.yaml", "Path to config file")
	fs.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	fs.BoolVar(&cfg.once, "once", false, "Run one compliance sweep and exit")
	fs.BoolVar(&cfg.debug, "debug", false, "Debug logging and in-memory backend")

	err := fs.Parse(args)
	return cfg, err
}
