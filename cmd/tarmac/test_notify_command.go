package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tarmac/internal/daemonctl"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonctl.Client) error {
				message, err := client.TestNotification(cmd.Context())
				if err != nil {
					return err
				}
				if message == "" {
					message = "Test notification sent"
				}
				fmt.Fprintln(cmd.OutOrStdout(), message)
				return nil
			})
		},
	}
}
