package cli

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll watched symbols and alert on threshold breaches",
	Long: "Run starts the long-lived watcher: it polls the configured market\n" +
		"provider on a fixed interval, keeps a sliding window of prices per\n" +
		"symbol, and sends an alert when a move crosses the threshold. The\n" +
		"Telegram bot and the HTTP API start alongside when enabled.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Run(cmd.Context())
	},
}
