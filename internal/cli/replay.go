package cli

import (
	"github.com/spf13/cobra"

	"price-swing-alerts/internal/app"
)

var (
	replayCSV    string
	replaySymbol string
	replayPNG    string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay historical prices from CSV through the detection pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Replay(cmd.Context(), app.ReplayOptions{
			CSVPath: replayCSV,
			Symbol:  replaySymbol,
			PNGPath: replayPNG,
		})
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayCSV, "csv", "", "Path to a timestamp,price CSV file")
	replayCmd.Flags().StringVar(&replaySymbol, "symbol", "", "Symbol label for the replayed series")
	replayCmd.Flags().StringVar(&replayPNG, "png", "", "Optional path for a rendered price chart")
}
