package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"price-swing-alerts/internal/app"
)

var (
	simulateSymbol   string
	simulatePrices   []float64
	simulateInterval time.Duration
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "模拟一段价格序列并触发告警链路",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateSymbol == "" {
			return errors.New("--symbol 必须指定")
		}
		if len(simulatePrices) < 2 {
			return errors.New("--price 至少提供两个值")
		}

		return getApp().Simulate(cmd.Context(), app.SimulateOptions{
			Symbol:   simulateSymbol,
			Prices:   simulatePrices,
			Interval: simulateInterval,
		})
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateSymbol, "symbol", "", "交易对, 如 BTCUSDT")
	simulateCmd.Flags().Float64SliceVar(&simulatePrices, "price", nil, "价格序列, 可重复指定")
	simulateCmd.Flags().DurationVar(&simulateInterval, "interval", 0, "样本间隔, 默认取 poll_interval")
}
