package main

import (
	"fmt"
	"os"

	marketservice "lead_routing_backend/internal/market/service"
	"lead_routing_backend/platform/db"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var explainLeadCmd = &cobra.Command{
	Use:   "explain-lead <lead-id>",
	Short: "Print the scoring breakdown of a lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		leadID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid lead id: %w", err)
		}

		b, err := openBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer b.Close()

		res, err := b.leads.Service().ExplainScore(cmd.Context(), leadID)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var importStatsCmd = &cobra.Command{
	Use:   "import-stats <file.yaml>",
	Short: "Load an aggregator city/event price export",
	Long: `Upsert city_event_stats rows from a YAML document of the form:

  stats:
    - city: Austin
      state: TX
      event_type: wedding
      price_low: 1200
      price_median: 1800
      price_high: 2600
      sample_size: 42`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read stats file: %w", err)
		}
		records, err := marketservice.ParseStatsDocument(raw)
		if err != nil {
			return err
		}

		b, err := openBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer b.Close()

		res, err := b.market.Importer().Import(cmd.Context(), records)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		b, err := openBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer b.Close()

		applied, err := db.RunMigrations(cmd.Context(), b.pool)
		if err != nil {
			return err
		}
		for _, m := range applied {
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d %s\n", m.Version, m.Source)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d migrations applied\n", len(applied))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(explainLeadCmd, importStatsCmd, migrateCmd)
}
