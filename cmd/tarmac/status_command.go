package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tarmac/internal/daemon"
	"tarmac/internal/daemonctl"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			var status *daemon.Status
			err := ctx.withClient(func(client *daemonctl.Client) error {
				var clientErr error
				status, clientErr = client.Status(cmd.Context())
				return clientErr
			})
			if errors.Is(err, daemonctl.ErrDaemonUnavailable) {
				for _, line := range renderSectionHeader("Daemon", colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusError, "not reachable; start it with `tarmacd`", colorize))
				return nil
			}
			if err != nil {
				return err
			}

			for _, line := range daemonStatusLines(status, colorize) {
				fmt.Fprintln(stdout, line)
			}

			fmt.Fprintln(stdout)
			for _, line := range renderSectionHeader("Session", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if status.Session == nil {
				fmt.Fprintln(stdout, "No active session")
				return nil
			}
			for _, line := range sessionStatusLines(status.Session, colorize) {
				fmt.Fprintln(stdout, line)
			}
			return nil
		},
	}
}

func daemonStatusLines(status *daemon.Status, colorize bool) []string {
	lines := renderSectionHeader("Daemon", colorize)
	runningKind := statusError
	if status.Running {
		runningKind = statusOK
	}
	lines = append(lines, renderStatusLine("Daemon", runningKind, "running: "+yesNo(status.Running), colorize))
	lines = append(lines,
		renderValueLine("Camera device", status.Device),
		renderValueLine("Lock file", status.LockFilePath),
		renderValueLine("Scan database", status.ScanDBPath),
	)
	return lines
}

func sessionStatusLines(session *daemon.SessionStatus, colorize bool) []string {
	progressKind := statusWarn
	if session.Scanned >= session.Disembarking {
		progressKind = statusOK
	}
	return []string{
		renderValueLine("Flight", fmt.Sprintf("%s (%s, %s)", session.FlightNumber, session.Station, session.Date)),
		renderValueLine("State", session.State),
		renderStatusLine("Accounted", progressKind, fmt.Sprintf("%d of %d disembarking", session.Scanned, session.Disembarking), colorize),
		renderValueLine("Scan records", fmt.Sprintf("%d", session.Records)),
		renderValueLine("Started", session.StartedAt.Format("2006-01-02 15:04:05")),
	}
}
