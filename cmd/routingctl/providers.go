package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var rescoreCmd = &cobra.Command{
	Use:   "rescore [provider-id]",
	Short: "Recompute routing scores",
	Long: `Recompute the routing score of one provider, or of every provider with --all.

Examples:
  rescore 0b7f1c5e-3a52-4d6e-9a0e-2f0f5d1b8c11
  rescore --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if all == (len(args) == 1) {
			return fmt.Errorf("pass either a provider id or --all")
		}

		b, err := openBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer b.Close()

		svc := b.providers.Service()
		if all {
			res, err := svc.RecalculateAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rescored %d of %d providers (%d failed)\n", res.Updated, res.Total, res.Failed)
			return nil
		}

		providerID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid provider id: %w", err)
		}
		res, err := svc.RecalculateOne(cmd.Context(), providerID)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var standingCmd = &cobra.Command{
	Use:   "standing <provider-id>",
	Short: "Show a provider's metrics and routing score breakdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		providerID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid provider id: %w", err)
		}

		b, err := openBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer b.Close()

		res, err := b.providers.Service().GetStanding(cmd.Context(), providerID)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	rescoreCmd.Flags().Bool("all", false, "rescore every provider")
	rootCmd.AddCommand(rescoreCmd, standingCmd)
}
