package alerting

import (
	"fmt"
	"strings"
	"time"

	"price-swing-alerts/internal/format"
	"price-swing-alerts/internal/monitor"
)

// RenderMessage 渲染用户可见的告警文本。
func RenderMessage(event monitor.AlertEvent) string {
	arrow := "🚀"
	verb := "increased"
	if event.PercentChange.Sign() < 0 {
		arrow = "📉"
		verb = "decreased"
	}

	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("%s *%s* price has %s by %s in the last %s!\n",
		arrow, event.Symbol, verb, format.Percent(event.PercentChange.Abs()), renderWindow(event.Window)))
	builder.WriteString(fmt.Sprintf("Current price: %s\n", format.Price(event.NewPrice)))
	builder.WriteString(fmt.Sprintf("Previous price: %s", format.Price(event.OldPrice)))
	return builder.String()
}

func renderWindow(window time.Duration) string {
	if window < time.Minute {
		return fmt.Sprintf("%d seconds", int(window.Seconds()))
	}
	minutes := int(window.Minutes())
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
