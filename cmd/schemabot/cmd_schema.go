package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/schemabot/internal/auth"
	"github.com/user/schemabot/internal/dispatch"
	"github.com/user/schemabot/internal/types"
	"github.com/user/schemabot/internal/warehouse"
)

func init() {
	rootCmd.AddCommand(schemaCmd)
}

// The chat surface only ever describes the configured table; this operator
// command additionally accepts an explicit table argument.
var schemaCmd = &cobra.Command{
	Use:   "schema [table]",
	Short: "Describe a table's schema",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		if cfg.Warehouse.Project == "" {
			return fmt.Errorf("warehouse.project is not configured (run `schemabot setup`)")
		}

		var ref types.TableRef
		var err error
		if len(args) == 1 {
			ref, err = types.ParseTableRef(args[0], cfg.Warehouse.Project, cfg.Warehouse.Dataset)
		} else {
			ref, err = cfg.SchemaTableRef()
		}
		if err != nil {
			return err
		}

		resolver := auth.NewResolver(cfg.Warehouse.ImpersonateServiceAccount)
		catalog := warehouse.New(cfg.Warehouse.Project, resolver)

		meta, err := catalog.DescribeTable(cmd.Context(), ref)
		if err != nil {
			return fmt.Errorf("describe %s: %w", ref, err)
		}
		fmt.Fprintln(os.Stdout, dispatch.RenderTableMeta(meta))
		return nil
	},
}
