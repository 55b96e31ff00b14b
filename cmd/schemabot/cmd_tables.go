package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/schemabot/internal/auth"
	"github.com/user/schemabot/internal/warehouse"
)

func init() {
	rootCmd.AddCommand(tablesCmd)
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List tables visible to the resolved identity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		if cfg.Warehouse.Project == "" {
			return fmt.Errorf("warehouse.project is not configured (run `schemabot setup`)")
		}

		resolver := auth.NewResolver(cfg.Warehouse.ImpersonateServiceAccount)
		catalog := warehouse.New(cfg.Warehouse.Project, resolver)

		refs, err := catalog.ListTables(cmd.Context())
		if err != nil {
			return fmt.Errorf("list tables: %w", err)
		}
		if len(refs) == 0 {
			fmt.Fprintln(os.Stdout, "No accessible tables found.")
			return nil
		}
		for i, ref := range refs {
			fmt.Fprintf(os.Stdout, "%d. %s\n", i+1, ref)
		}
		return nil
	},
}
