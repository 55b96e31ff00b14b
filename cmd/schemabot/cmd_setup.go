package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/schemabot/internal/config"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("Schemabot Setup Wizard")
		fmt.Println("Press Enter to accept the default value shown in brackets.")
		fmt.Println()

		cfg.Warehouse.Project = prompt(scanner, "BigQuery project", cfg.Warehouse.Project)
		cfg.Warehouse.Dataset = prompt(scanner, "Default dataset", cfg.Warehouse.Dataset)
		cfg.Warehouse.SchemaTable = prompt(scanner, "Schema lookup table", cfg.Warehouse.SchemaTable)
		cfg.Warehouse.ImpersonateServiceAccount = prompt(scanner,
			"Impersonate service account (optional)", cfg.Warehouse.ImpersonateServiceAccount)
		cfg.Chat.Trigger = prompt(scanner, "Chat trigger token", cfg.Chat.Trigger)
		cfg.Telegram.Token = prompt(scanner, "Telegram bot token (optional)", cfg.Telegram.Token)

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		return nil
	},
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}
