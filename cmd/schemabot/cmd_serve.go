package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/schemabot/internal/auth"
	"github.com/user/schemabot/internal/dispatch"
	"github.com/user/schemabot/internal/gateway"
	"github.com/user/schemabot/internal/state"
	"github.com/user/schemabot/internal/telegram"
	"github.com/user/schemabot/internal/types"
	"github.com/user/schemabot/internal/warehouse"
	"github.com/user/schemabot/internal/webhook"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the schemabot daemon",
	RunE:  runServe,
}

// pidFilePath is shared with the stop and restart commands.
func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "schemabot.pid")
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := pidFilePath(dataDir)
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if cfg.Warehouse.Project == "" {
		return fmt.Errorf("warehouse.project is not configured (run `schemabot setup`)")
	}
	table, err := cfg.SchemaTableRef()
	if err != nil {
		return fmt.Errorf("resolve schema table: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	// Core wiring: resolver -> catalog -> dispatcher -> gateway. Credential
	// resolution happens lazily on the first warehouse call.
	sessions := state.NewSessionStore()
	resolver := auth.NewResolver(cfg.Warehouse.ImpersonateServiceAccount)
	catalog := warehouse.New(cfg.Warehouse.Project, resolver)
	dispatcher := dispatch.New(catalog, sessions, table, cfg.Chat.Trigger)

	gw := gateway.New(sessions, int64(cfg.MaxConcurrent))
	gw.Queue.SetProcessor(dispatcher.ProcessRun)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw.Start(ctx)
	defer gw.Stop()

	slog.Info("schemabot started",
		"project", cfg.Warehouse.Project,
		"schema_table", table.String(),
		"trigger", cfg.Chat.Trigger,
		"impersonation", cfg.Warehouse.ImpersonateServiceAccount != "",
		"max_concurrent", cfg.MaxConcurrent,
		"pid_file", pidPath,
	)

	// processMessage pushes one message through the gateway and waits for
	// the in-order reply.
	processMessage := func(ctx context.Context, msg *types.InboundMessage) (string, error) {
		done := make(chan string, 1)
		err := gw.HandleInbound(ctx, msg, gateway.WithOnComplete(func(reply string) {
			done <- reply
		}))
		if err != nil {
			return "", err
		}
		select {
		case reply := <-done:
			return reply, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	// Telegram adapter
	if cfg.Telegram.Token != "" {
		adapter, err := telegram.New(cfg.Telegram.Token, gw, dispatcher, sessions)
		if err != nil {
			return fmt.Errorf("create telegram adapter: %w", err)
		}
		go adapter.Start(ctx)
		slog.Info("telegram adapter started")
	} else {
		slog.Warn("telegram adapter disabled (no token)")
	}

	// HTTP chat server
	if cfg.HTTP.Enabled {
		chatSrv := webhook.NewServer(sessions, dispatcher.StartSession, processMessage, gw.EndSession)
		httpServer := &http.Server{
			Addr:    cfg.HTTP.Listen,
			Handler: chatSrv,
		}
		go func() {
			slog.Info("http chat server started", "listen", cfg.HTTP.Listen)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("http chat server error", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			httpServer.Close()
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			os.Remove(pidPath)
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				slog.Error("failed to re-exec", "error", err)
				if _, writeErr := writePIDFile(cfg.DataDir); writeErr != nil {
					slog.Error("failed to re-write PID file", "error", writeErr)
				}
				continue
			}
		}
		// SIGINT or SIGTERM
		slog.Info("shutting down", "signal", sig)
		return nil
	}
}
