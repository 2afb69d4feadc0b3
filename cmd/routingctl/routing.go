package main

import (
	"context"
	"fmt"

	"lead_routing_backend/internal/routing/transport"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var routeCmd = &cobra.Command{
	Use:   "route <lead-id>",
	Short: "Start the exclusive phase for a lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStep(cmd, args[0], func(b *backend) stepFunc { return b.routing.Service().Route })
	},
}

var escalateCmd = &cobra.Command{
	Use:   "escalate <lead-id>",
	Short: "Move a lead from the exclusive to the shared phase now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStep(cmd, args[0], func(b *backend) stepFunc { return b.routing.Service().Escalate })
	},
}

var expireCmd = &cobra.Command{
	Use:   "expire <lead-id>",
	Short: "Close the shared phase of a lead now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStep(cmd, args[0], func(b *backend) stepFunc { return b.routing.Service().Expire })
	},
}

var respondCmd = &cobra.Command{
	Use:   "respond <assignment-id> <accepted|declined|ignored>",
	Short: "Record a provider response on behalf of the provider",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		assignmentID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid assignment id: %w", err)
		}

		b, err := openBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer b.Close()

		res, err := b.routing.Service().RespondToLead(cmd.Context(), assignmentID, args[1], nil)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert <lead-id> <provider-id>",
	Short: "Confirm that a lead booked a provider",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		leadID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid lead id: %w", err)
		}
		providerID, err := uuid.Parse(args[1])
		if err != nil {
			return fmt.Errorf("invalid provider id: %w", err)
		}

		b, err := openBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer b.Close()

		if err := b.routing.Service().MarkLeadConverted(cmd.Context(), leadID, providerID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "lead %s converted with provider %s\n", leadID, providerID)
		return nil
	},
}

var assignmentsCmd = &cobra.Command{
	Use:   "assignments <lead-id>",
	Short: "List the assignments of a lead",
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

		list, err := b.routing.Service().ListAssignments(cmd.Context(), leadID)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), list)
	},
}

type stepFunc func(ctx context.Context, leadID uuid.UUID) (transport.RoutingStepResponse, error)

func runStep(cmd *cobra.Command, rawLeadID string, pick func(*backend) stepFunc) error {
	leadID, err := uuid.Parse(rawLeadID)
	if err != nil {
		return fmt.Errorf("invalid lead id: %w", err)
	}

	b, err := openBackend(cmd.Context())
	if err != nil {
		return err
	}
	defer b.Close()

	step, err := pick(b)(cmd.Context(), leadID)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), step)
}

func init() {
	rootCmd.AddCommand(routeCmd, escalateCmd, expireCmd, respondCmd, convertCmd, assignmentsCmd)
}
