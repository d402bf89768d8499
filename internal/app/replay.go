package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"price-swing-alerts/internal/monitor"
)

const maxChartPoints = 2000

// ReplayOptions configure the historical replay.
type ReplayOptions struct {
	CSVPath string
	Symbol  string
	PNGPath string
}

type replaySample struct {
	at    time.Time
	price decimal.Decimal
}

// Replay 用 CSV 历史数据离线重放检测管线, 在 stdout 打出触发的告警明细,
// 可选输出价格走势图。
func (a *App) Replay(ctx context.Context, opts ReplayOptions) error {
	if opts.CSVPath == "" {
		return errors.New("--csv is required")
	}
	symbol := monitor.NormalizeSymbol(opts.Symbol)
	if symbol == "" {
		return errors.New("symbol is required")
	}

	samples, err := readPriceCSV(opts.CSVPath)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		fmt.Fprintln(os.Stdout, "no samples found")
		return nil
	}

	engine := monitor.NewEngine(monitor.Options{
		Lookback:     a.Config.Monitor.Lookback,
		ThresholdPct: a.Config.Monitor.ThresholdPct,
		Cooldown:     a.Config.Monitor.Cooldown,
	}, a.Logger)
	engine.Watch(symbol)

	var alerts []monitor.AlertEvent
	emit := func(_ context.Context, event monitor.AlertEvent) error {
		alerts = append(alerts, event)
		return nil
	}

	for i, sample := range samples {
		if _, err := engine.Observe(ctx, symbol, sample.price, sample.at, emit); err != nil {
			return fmt.Errorf("sample %d: %w", i+1, err)
		}
	}

	writeReplayReport(os.Stdout, symbol, len(samples), alerts)

	if opts.PNGPath != "" {
		if err := writeReplayPNG(opts.PNGPath, samples, alerts); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.PNGPath).Msg("chart written")
	}

	return nil
}

// readPriceCSV 读取 timestamp,price 两列, 时间戳接受 RFC3339 或 unix 秒,
// 首行表头自动跳过。
func readPriceCSV(path string) ([]replaySample, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	samples := make([]replaySample, 0, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("row %d: want timestamp,price", i+1)
		}

		at, err := parseTimestamp(strings.TrimSpace(row[0]))
		if err != nil {
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		price, err := decimal.NewFromString(strings.TrimSpace(row[1]))
		if err != nil {
			return nil, fmt.Errorf("row %d: parse price: %w", i+1, err)
		}

		samples = append(samples, replaySample{at: at.UTC(), price: price})
	}

	return samples, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0), nil
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q", raw)
}

func writeReplayReport(w io.Writer, symbol string, total int, alerts []monitor.AlertEvent) {
	fmt.Fprintf(w, "%s: %d samples, %d alerts\n", symbol, total, len(alerts))
	if len(alerts) == 0 {
		return
	}

	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tOld\tNew\tChange%\tWindow")
	for _, event := range alerts {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\n",
			event.TriggeredAt.UTC().Format(time.RFC3339),
			event.OldPrice.String(),
			event.NewPrice.String(),
			event.PercentChange.StringFixed(2),
			event.Window,
		)
	}
	writer.Flush()
}

func writeReplayPNG(path string, samples []replaySample, alerts []monitor.AlertEvent) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	points := downsample(samples, maxChartPoints)
	x := make([]time.Time, len(points))
	y := make([]float64, len(points))
	for i, sample := range points {
		x[i] = sample.at
		y[i] = sample.price.InexactFloat64()
	}

	series := []chart.Series{
		chart.TimeSeries{
			Name:    "Price",
			XValues: x,
			YValues: y,
		},
	}

	if len(alerts) > 0 {
		annotations := make([]chart.Value2, 0, len(alerts))
		for _, event := range alerts {
			annotations = append(annotations, chart.Value2{
				XValue: chart.TimeToFloat64(event.TriggeredAt),
				YValue: event.NewPrice.InexactFloat64(),
				Label:  event.PercentChange.StringFixed(2) + "%",
			})
		}
		series = append(series, chart.AnnotationSeries{Annotations: annotations})
	}

	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name: "Price (USD)",
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func downsample(samples []replaySample, max int) []replaySample {
	if max <= 0 || len(samples) <= max {
		return samples
	}

	result := make([]replaySample, 0, max)
	step := float64(len(samples)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(samples) {
			idx = len(samples) - 1
		}
		result = append(result, samples[idx])
	}
	return result
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
