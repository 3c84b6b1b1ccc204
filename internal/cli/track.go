package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adda-Baaj/north-relay/internal/domain"
	"github.com/Adda-Baaj/north-relay/pkg/management"
)

func newTrackCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Manage asset tracking tuples",
	}
	cmd.AddCommand(newTrackAddCmd(a))
	cmd.AddCommand(newTrackListCmd(a))
	return cmd
}

func newTrackAddCmd(a *app) *cobra.Command {
	var tuple domain.AssetTuple

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register an asset tracking tuple",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(tuple.Asset) == "" || strings.TrimSpace(tuple.Event) == "" {
				return fmt.Errorf("--asset and --event are required")
			}
			s, err := a.newSender()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := management.NewClient(s).AddTrack(cmd.Context(), tuple); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s\n", tuple)
			return nil
		},
	}

	cmd.Flags().StringVar(&tuple.Service, "service", "north-relay", "service name")
	cmd.Flags().StringVar(&tuple.Plugin, "plugin", "north-relay", "plugin name")
	cmd.Flags().StringVar(&tuple.Asset, "asset", "", "asset name")
	cmd.Flags().StringVar(&tuple.Event, "event", "", "event (Ingest, Egress, Filter)")
	return cmd
}

func newTrackListCmd(a *app) *cobra.Command {
	var service string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tuples registered for a service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.newSender()
			if err != nil {
				return err
			}
			defer s.Close()

			tuples, err := management.NewClient(s).Tracks(cmd.Context(), service)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), tuples)
		},
	}
	cmd.Flags().StringVar(&service, "service", "", "filter by service name")
	return cmd
}
