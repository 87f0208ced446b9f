package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tarmac/internal/daemonctl"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the active scan session",
	}

	sessionCmd.AddCommand(newSessionStartCommand(ctx))
	sessionCmd.AddCommand(newSessionStopCommand(ctx))

	return sessionCmd
}

func newSessionStartCommand(ctx *commandContext) *cobra.Command {
	var dateFlag string

	cmd := &cobra.Command{
		Use:   "start FLIGHT",
		Short: "Fetch the flight manifest and begin scanning",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flight := strings.ToUpper(strings.TrimSpace(args[0]))
			if flight == "" {
				return fmt.Errorf("flight number is required")
			}
			date := strings.TrimSpace(dateFlag)
			if date == "" {
				date = time.Now().Format("2006-01-02")
			}

			return ctx.withClient(func(client *daemonctl.Client) error {
				session, err := client.StartSession(cmd.Context(), flight, date)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Session started for %s at %s on %s\n", session.FlightNumber, session.Station, session.Date)
				fmt.Fprintf(stdout, "%d disembarking passengers on the manifest\n", session.Disembarking)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "Flight date (YYYY-MM-DD, defaults to today)")
	return cmd
}

func newSessionStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "End the active scan session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonctl.Client) error {
				if err := client.StopSession(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Session stopped")
				return nil
			})
		},
	}
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Trigger one capture attempt immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonctl.Client) error {
				if err := client.Scan(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Capture attempt triggered")
				return nil
			})
		},
	}
}

func newMatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "match IDENTIFIER",
		Short: "Manually account a passenger by entry id, seat, or PNR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			identifier := strings.TrimSpace(args[0])
			if identifier == "" {
				return fmt.Errorf("identifier is required")
			}
			return ctx.withClient(func(client *daemonctl.Client) error {
				message, err := client.ManualMatch(cmd.Context(), identifier)
				if err != nil {
					return err
				}
				if message == "" {
					message = "Passenger accounted"
				}
				fmt.Fprintln(cmd.OutOrStdout(), message)
				return nil
			})
		},
	}
}
