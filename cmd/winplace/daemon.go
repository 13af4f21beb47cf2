package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/1broseidon/winplace/internal/config"
	"github.com/1broseidon/winplace/internal/daemon"
	"github.com/1broseidon/winplace/internal/diag"
	"github.com/1broseidon/winplace/internal/ipc"
	"github.com/1broseidon/winplace/internal/platform"
	"github.com/1broseidon/winplace/internal/procinfo"
	"github.com/1broseidon/winplace/internal/runtimepath"
)

const shutdownGrace = 5 * time.Second

func (a *app) newDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Start the placement daemon (foreground)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDaemon()
		},
	}

	cmd.Flags().String("rules", "", "rules file (overrides rules_file)")
	cmd.Flags().String("log-file", "", "diagnostics log (overrides log_file)")
	cmd.Flags().String("trigger", "", "shutdown trigger: auto, console or service")
	a.v.BindPFlag("rules_file", cmd.Flags().Lookup("rules"))
	a.v.BindPFlag("log_file", cmd.Flags().Lookup("log-file"))
	a.v.BindPFlag("shutdown_trigger", cmd.Flags().Lookup("trigger"))
	return cmd
}

func (a *app) runDaemon() error {
	settings, err := a.settings()
	if err != nil {
		return err
	}
	mode, err := daemon.ParseTriggerMode(settings.ShutdownTrigger)
	if err != nil {
		return err
	}
	mode = daemon.ResolveTrigger(mode, os.Stdin)

	var mirror io.Writer
	if mode == daemon.TriggerConsole || settings.Debug {
		mirror = os.Stderr
	}
	sink, err := diag.New(diag.Config{
		FilePath:  settings.LogFile,
		MaxSizeMB: settings.LogMaxSizeMB,
		MaxFiles:  settings.LogMaxFiles,
		Mirror:    mirror,
	})
	if err != nil {
		return fmt.Errorf("failed to open diagnostics log: %w", err)
	}
	defer sink.Close()

	sink.Info("Log location: " + sink.Path())
	sink.Info("Reading config from " + settings.RulesFile)
	rules, err := config.LoadRules(settings.RulesFile, config.FoldCase(settings.CaseInsensitivePaths))
	if err != nil {
		sink.Error("failed to read config", err)
		return err
	}
	for _, w := range rules.Warnings {
		sink.Logger().Warn().Msg(w)
	}
	table := rules.Table()
	sink.Logger().Info().Int("rules", table.Len()).Msg("Done reading config")

	lock, err := acquireInstanceLock()
	if err != nil {
		sink.Error("failed to start", err)
		return err
	}
	defer func() { _ = lock.Unlock() }()

	backend, err := platform.NewBackend()
	if err != nil {
		sink.Error("failed to connect to window system", err)
		return err
	}
	if c, ok := backend.(io.Closer); ok {
		defer c.Close()
	}
	daemon.CheckTargets(backend, table, sink)

	reconcile := settings.ReconcileInterval
	if reconcile == 0 {
		reconcile = -1
	}
	d := daemon.New(backend, table, procinfo.NewResolver(), sink, daemon.Options{
		ReadyTimeout:      settings.ReadyTimeout,
		ReconcileInterval: reconcile,
		TraceMoves:        settings.Debug,
	})

	// Signals and STOP are accepted while existing windows are handled.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	var stopRequested <-chan struct{}
	srv, err := ipc.NewServer(ipc.ServerConfig{
		Source:    d,
		Table:     table,
		RulesFile: rules.File,
		LogFile:   sink.Path(),
		RunID:     sink.RunID(),
	})
	if err == nil {
		err = srv.Start()
	}
	if err != nil {
		// Signals and console input still work without the socket.
		sink.Error("IPC unavailable", err)
		srv = nil
	} else {
		stopRequested = srv.StopRequested()
		defer srv.Stop()
	}

	if err := d.Start(); err != nil {
		sink.Error("failed to start", err)
		return err
	}

	sink.Logger().Info().Str("mode", string(mode)).Msg("Listening for windows...")

	reason := daemon.WaitForShutdown(ctx, mode, os.Stdin, stopRequested)
	sink.Logger().Info().Str("reason", reason).Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := d.Shutdown(shutdownCtx); err != nil {
		sink.Error("shutdown", err)
	}

	st := d.Stats()
	sink.Logger().Info().
		Int64("seen", st.Seen).
		Int64("applied", st.Applied).
		Int64("failed", st.Failed).
		Msg("Exiting")
	log.Debug().Str("reason", reason).Msg("daemon stopped")
	return nil
}

func acquireInstanceLock() (*flock.Flock, error) {
	path, err := runtimepath.LockPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve lock path: %w", err)
	}
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("daemon already running (lock held by another process)")
	}
	return lock, nil
}
