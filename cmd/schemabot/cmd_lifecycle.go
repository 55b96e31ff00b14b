package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(stopCmd, restartCmd)
}

// runningDaemon locates the daemon recorded in the PID file and confirms it
// is alive (signal 0). Returns the process handle ready to be signalled.
func runningDaemon() (*os.Process, int, error) {
	cfg := loadConfig()
	pidPath := pidFilePath(cfg.DataDir)

	data, err := os.ReadFile(pidPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("daemon is not running (no PID file at %s)", pidPath)
		}
		return nil, 0, fmt.Errorf("read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, 0, fmt.Errorf("PID file %s is corrupt: %w", pidPath, err)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil, 0, fmt.Errorf("find process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return nil, 0, fmt.Errorf("daemon is not running (stale PID file, process %d gone)", pid)
	}
	return proc, pid, nil
}

func signalDaemon(sig syscall.Signal, action string) error {
	proc, pid, err := runningDaemon()
	if err != nil {
		return err
	}
	if err := proc.Signal(sig); err != nil {
		return fmt.Errorf("signal daemon (PID %d): %w", pid, err)
	}
	fmt.Fprintf(os.Stdout, "Asked daemon (PID %d) to %s.\n", pid, action)
	return nil
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return signalDaemon(syscall.SIGTERM, "shut down")
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the running daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return signalDaemon(syscall.SIGHUP, "restart")
	},
}
