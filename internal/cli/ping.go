package cli

import (
	"github.com/spf13/cobra"

	"github.com/Adda-Baaj/north-relay/pkg/management"
)

func newPingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Ping the management API and print its status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.newSender()
			if err != nil {
				return err
			}
			defer s.Close()

			status, err := management.NewClient(s).Ping(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), status)
		},
	}
}
