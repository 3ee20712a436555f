// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ManuGH/rtsnap/internal/capture"
	"github.com/ManuGH/rtsnap/internal/clock"
	"github.com/ManuGH/rtsnap/internal/config"
	"github.com/ManuGH/rtsnap/internal/daemon"
	"github.com/ManuGH/rtsnap/internal/health"
	xglog "github.com/ManuGH/rtsnap/internal/log"
	"github.com/ManuGH/rtsnap/internal/schedule"
	"github.com/ManuGH/rtsnap/internal/sink"
	"github.com/ManuGH/rtsnap/internal/supervisor"
	"github.com/ManuGH/rtsnap/internal/version"
	"github.com/ManuGH/rtsnap/internal/worker"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// options are the command line overrides. Empty values fall back to the
// RTSNAP_* environment and then to the built-in defaults.
type options struct {
	configPath    string
	outputDir     string
	listenAddr    string
	logLevel      string
	logFormat     string
	envFile       string
	exitOnMissing bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "rtsnap",
		Short:         "Capture still images from RTSP streams",
		Long:          "rtsnap keeps one capture worker per configured stream and writes the newest frame of each to <output>/<name>.jpg.",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnv(opts.envFile); err != nil {
				return err
			}
			xglog.Configure(xglog.Config{
				Level:   opts.logLevel,
				Format:  opts.logFormat,
				Output:  cmd.ErrOrStderr(),
				Version: version.Version,
			})
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt := opts.runtime()
			if err := rt.Validate(); err != nil {
				return fmt.Errorf("invalid settings: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			err := run(ctx, rt)
			if err != nil {
				logger := xglog.WithComponent("daemon")
				logger.Error().Err(err).Str(xglog.FieldEvent, "daemon.failed").Msg("daemon exited with error")
			}
			return err
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "stream configuration file (env RTSNAP_CONFIG, default ./config.json)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (env LOG_LEVEL)")
	pf.StringVar(&opts.logFormat, "log-format", "", "log format: json or console (env LOG_FORMAT)")
	pf.StringVar(&opts.envFile, "env-file", "", "dotenv file to load before reading the environment (default .env if present)")

	f := root.Flags()
	f.StringVarP(&opts.outputDir, "output", "o", "", "directory for captured images (env RTSNAP_OUTPUT_DIR, default: config file directory)")
	f.StringVar(&opts.listenAddr, "listen", "", "status server address, empty disables it (env RTSNAP_LISTEN)")
	f.BoolVar(&opts.exitOnMissing, "exit-on-missing-config", false, "exit after writing the default config instead of idling (env RTSNAP_EXIT_ON_MISSING_CONFIG)")

	root.AddCommand(newValidateCmd(opts), newHealthcheckCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// loadEnv applies a dotenv file without overriding variables already set.
// The implicit .env is optional; an explicit file must exist.
func loadEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func (o *options) runtime() config.Runtime {
	rt := config.LoadRuntime(o.configPath)
	if o.outputDir != "" {
		rt.OutputDir = o.outputDir
	}
	if o.listenAddr != "" {
		rt.ListenAddr = o.listenAddr
	}
	if o.exitOnMissing {
		rt.ExitOnMissingConfig = true
	}
	return rt
}

// run builds the daemon from rt and blocks until ctx is cancelled and every
// worker has stopped.
func run(ctx context.Context, rt config.Runtime) error {
	logger := xglog.WithComponent("daemon")
	logger.Info().
		Str(xglog.FieldEvent, "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str(xglog.FieldPath, rt.ConfigPath).
		Str("output_dir", rt.OutputDir).
		Msg("starting rtsnap")

	missing := false
	if err := config.EnsureFile(rt.ConfigPath); err != nil {
		if !errors.Is(err, config.ErrConfigMissing) {
			return err
		}
		if rt.ExitOnMissingConfig {
			logger.Error().Err(err).Str(xglog.FieldEvent, "config.missing").Msg("config file was missing, edit the generated default and start again")
			return err
		}
		missing = true
		logger.Warn().Err(err).Str(xglog.FieldEvent, "config.missing").Msg("config file was missing, idling until it is edited")
	}

	out, err := sink.NewFileSink(rt.OutputDir)
	if err != nil {
		return err
	}
	if err := health.PerformStartupChecks(ctx, rt); err != nil {
		return fmt.Errorf("startup checks: %w", err)
	}

	store := config.NewStore()
	watcher := config.NewWatcher(rt.ConfigPath, store, config.WithDebounce(rt.Debounce))
	// A freshly written default only becomes active once an operator edits it.
	if !missing {
		if err := watcher.Reload(ctx); err != nil {
			logger.Warn().Err(err).Str(xglog.FieldEvent, "config.initial_load_failed").Msg("starting with no streams")
		}
	}

	source := capture.NewFFmpegSource(capture.FFmpegOptions{
		BinaryPath:    rt.FFmpegPath,
		RTSPTransport: rt.RTSPTransport,
		OpenTimeout:   rt.OpenTimeout,
		ReadTimeout:   rt.ReadTimeout,
	})
	sup := supervisor.New(store, supervisor.WorkerFactory(func(def config.StreamDefinition) *worker.Worker {
		return worker.New(def, source, out, worker.Options{
			Backoff:         rt.Backoff,
			CaptureInterval: rt.CaptureInterval,
		})
	}), supervisor.Options{StopTimeout: rt.StopTimeout})

	var sched *schedule.Scheduler
	if rt.RestartAt != "" {
		at, err := schedule.ParseTimeOfDay(rt.RestartAt)
		if err != nil {
			return err
		}
		sched = schedule.New(at, clock.Real{})
	} else {
		logger.Info().Msg("daily restart disabled")
	}

	hm := health.NewManager(version.Version)
	hm.RegisterChecker(health.NewDirChecker("output_dir", out.Dir()))
	hm.RegisterChecker(health.NewConfigChecker(watcher.Status))
	hm.RegisterChecker(health.NewWorkersChecker(sup.Status))

	mgr, err := daemon.NewManager(daemon.Deps{
		Logger:        logger,
		ListenAddr:    rt.ListenAddr,
		StatusHandler: daemon.NewStatusRouter(hm, sup.Status),
		// Workers get StopTimeout to acknowledge; leave room for the server.
		ShutdownTimeout: rt.StopTimeout + 5*time.Second,
	})
	if err != nil {
		return err
	}

	app := daemon.NewApp(logger, mgr, store, watcher, sup, sched)
	if err := app.Run(ctx); err != nil {
		return err
	}
	logger.Info().Str(xglog.FieldEvent, "shutdown").Msg("rtsnap stopped")
	return nil
}
