package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tarmac/internal/daemonctl"
)

func newManifestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "manifest",
		Short: "Show the disembarking manifest with accounted state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonctl.Client) error {
				entries, err := client.Reconciliation(cmd.Context())
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(stdout, "Manifest has no disembarking passengers")
					return nil
				}

				rows := make([][]string, 0, len(entries))
				accounted := 0
				for _, entry := range entries {
					if entry.Accounted {
						accounted++
					}
					rows = append(rows, []string{
						entry.PassengerName,
						entry.Seat,
						entry.PNR,
						yesNo(entry.Accounted),
					})
				}

				table := renderTable(
					[]string{"Passenger", "Seat", "PNR", "Accounted"},
					rows,
				)
				fmt.Fprintln(stdout, table)
				fmt.Fprintf(stdout, "%d of %d accounted for\n", accounted, len(entries))
				return nil
			})
		},
	}
}
