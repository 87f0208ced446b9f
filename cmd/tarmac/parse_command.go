package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tarmac/internal/bcbp"
)

func newParseCommand() *cobra.Command {
	var ocrFlag bool

	cmd := &cobra.Command{
		Use:         "parse PAYLOAD",
		Short:       "Parse a boarding pass payload locally",
		Long:        "Parse an IATA BCBP barcode payload (or OCR text with --ocr) without contacting the daemon.",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var pass bcbp.BoardingPass
			if ocrFlag {
				pass = bcbp.ParseOCR(args[0])
			} else {
				pass = bcbp.Parse(args[0])
			}

			stdout := cmd.OutOrStdout()
			fmt.Fprintln(stdout, renderValueLine("Source", string(pass.Source)))
			fmt.Fprintln(stdout, renderValueLine("Passenger", pass.PassengerName))
			fmt.Fprintln(stdout, renderValueLine("Flight", pass.FlightNumber))
			fmt.Fprintln(stdout, renderValueLine("Route", formatRoute(pass.Origin, pass.Destination)))
			fmt.Fprintln(stdout, renderValueLine("Seat", pass.Seat))
			fmt.Fprintln(stdout, renderValueLine("PNR", pass.PNR))
			if pass.Date != "" {
				fmt.Fprintln(stdout, renderValueLine("Date", pass.Date))
			}
			if pass.Class != "" {
				fmt.Fprintln(stdout, renderValueLine("Class", pass.Class))
			}
			if pass.Sequence != "" {
				fmt.Fprintln(stdout, renderValueLine("Sequence", pass.Sequence))
			}
			if len(pass.ParseErrors) > 0 {
				fmt.Fprintln(stdout, renderValueLine("Parse errors", strings.Join(pass.ParseErrors, "; ")))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&ocrFlag, "ocr", false, "Treat the payload as OCR text instead of a barcode")
	return cmd
}

func formatRoute(origin, destination string) string {
	if origin == "" && destination == "" {
		return ""
	}
	return fmt.Sprintf("%s-%s", origin, destination)
}
