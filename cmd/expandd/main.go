// expandd is a text expansion daemon for Linux. It watches the keyboard
// for snippet triggers and replaces them with rendered templates using
// synthetic input.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"expandd/internal/config"
	"expandd/internal/engine"
	"expandd/internal/history"
	"expandd/internal/inject"
	"expandd/internal/ipc"
	"expandd/internal/keysource"
	"expandd/internal/logging"
	"expandd/internal/notify"
	"expandd/internal/variables"
)

const version = "0.4.0"

func main() {
	cmd := &cli.Command{
		Name:    "expandd",
		Usage:   "Text expansion daemon for Linux",
		Version: version,
		Action:  run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Sources: cli.EnvVars("EXPANDD_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "check",
				Usage: "Validate the config file and exit",
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "expandd: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if configPath == "" {
		configPath = config.ConfigPath()
	}

	// Materialize a default config on first run so users have a file to
	// edit.
	if _, created, err := config.LoadOrCreate(configPath); err != nil {
		return err
	} else if created {
		fmt.Fprintf(os.Stderr, "expandd: wrote default config to %s\n", configPath)
	}

	loader := config.NewLoader(configPath)
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	defer loader.Close()

	if cmd.Bool("check") {
		fmt.Printf("%s: OK (%d snippets)\n", configPath, len(cfg.Snippets))
		return nil
	}

	log, err := setupLogging(cfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer log.Close()
	logging.SetDefault(log)

	log.Info("starting", "version", version, "config", configPath)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	gate := &keysource.Gate{}
	source := keysource.Gated(keysource.NewPlatformSource(), gate)
	if ok, reason := source.Available(); !ok {
		return fmt.Errorf("key source unavailable: %s", reason)
	}

	sink := &inject.YdotoolSink{
		SocketPath:     cfg.Settings.YdotoolSocket,
		KeystrokeDelay: cfg.Settings.KeystrokeDelay(),
	}
	if ok, reason := sink.Available(); !ok {
		return fmt.Errorf("output unavailable: %s", reason)
	}

	var hist *history.Store
	if cfg.Settings.History.Enabled {
		hist, err = history.Open(cfg.Settings.History.Path)
		if err != nil {
			log.Warn("history disabled", "error", err)
			hist = nil
		} else {
			defer hist.Close()
			pruneHistory(hist, cfg, log)
		}
	}

	var notifier notify.Notifier
	notifier, err = notify.NewDBus()
	if err != nil {
		log.Warn("desktop notifications unavailable", "error", err)
		notifier = notify.Noop{}
	}
	defer notifier.Close()

	eng := engine.New(cfg, engine.Options{
		Source:   source,
		Gate:     gate,
		Resolver: variables.New(variables.WithTimeout(cfg.Settings.ShellTimeout())),
		Injector: inject.NewInjector(sink, gate),
		History:  hist,
		Notifier: notifier,
		Logger:   log.WithComponent("engine"),
	})

	loader.OnChange(func(c *config.Config) {
		eng.ApplyConfig(c)
	})
	if err := loader.Watch(); err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	go func() {
		for err := range loader.Errors() {
			log.Warn("config reload failed", "error", err)
		}
	}()

	handler := newHandler(eng, loader, hist, configPath, source, stop)
	srv := ipc.NewServer(cfg.Settings.SocketPath, handler, log.WithComponent("ipc"))
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start control socket: %w", err)
	}
	defer srv.Stop()

	err = eng.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("shutting down")
		return nil
	}
	return err
}

func setupLogging(cfg *config.Config) (*logging.Logger, error) {
	lc := cfg.Settings.Logging

	level, err := logging.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(lc.Format)
	if err != nil {
		return nil, err
	}

	return logging.New(&logging.Config{
		Level:      level,
		Format:     format,
		Output:     lc.Output,
		FilePath:   lc.FilePath,
		MaxSize:    lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
		Component:  "expandd",
	})
}

func pruneHistory(hist *history.Store, cfg *config.Config, log *logging.Logger) {
	maxAge := cfg.Settings.History.MaxAgeDays
	if maxAge <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -maxAge)
	removed, err := hist.Prune(cutoff)
	if err != nil {
		log.Warn("history prune failed", "error", err)
		return
	}
	if removed > 0 {
		log.Info("pruned old history entries", "removed", removed)
	}
}
