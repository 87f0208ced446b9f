package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tarmac/internal/daemon"
	"tarmac/internal/daemonctl"
)

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "records",
		Short: "Show the active session's scan log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonctl.Client) error {
				records, err := client.Records(cmd.Context())
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(stdout, "No scans recorded yet")
					return nil
				}

				limit := limitFlag
				if limit <= 0 {
					if cfg := ctx.configValue(); cfg != nil {
						limit = cfg.Session.MaxRecordsShown
					}
				}
				shown := records
				if limit > 0 && len(shown) > limit {
					shown = shown[:limit]
				}

				rows := buildRecordRows(shown)
				table := renderTable(
					[]string{"Time", "Source", "Result", "Passenger", "Flight", "Seat", "PNR"},
					rows,
				)
				fmt.Fprintln(stdout, table)
				if len(shown) < len(records) {
					fmt.Fprintf(stdout, "Showing %d of %d records\n", len(shown), len(records))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limitFlag, "limit", 0, "Maximum records to show (defaults to configuration)")
	return cmd
}

func buildRecordRows(records []daemon.RecordPayload) [][]string {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		passenger := record.PassengerName
		seat := record.Seat
		if record.Matched {
			if record.EntryName != "" {
				passenger = record.EntryName
			}
			if record.EntrySeat != "" {
				seat = record.EntrySeat
			}
		}
		rows = append(rows, []string{
			record.ScannedAt.Format("15:04:05"),
			record.Source,
			recordResult(record),
			strings.TrimSpace(passenger),
			record.FlightNumber,
			seat,
			record.PNR,
		})
	}
	return rows
}

func recordResult(record daemon.RecordPayload) string {
	switch {
	case record.Matched:
		return "matched"
	case record.Success:
		return "unmatched"
	default:
		return "failed"
	}
}
