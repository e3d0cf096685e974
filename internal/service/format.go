package service

import (
	"fmt"
	"strings"
	"time"

	"varRiskBot/internal/risk"
)

func formatVaR(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return "all"
	}
	return t.Format(time.DateOnly)
}

// Summary renders the input echo and the last estimates as plain text.
func Summary(out *Outcome) string {
	req, res := out.Request, out.Result
	var b strings.Builder

	b.WriteString("Input\n")
	fmt.Fprintf(&b, "  Tickers: %s\n", strings.Join(req.EffectivePortfolio().Symbols(), ", "))
	fmt.Fprintf(&b, "  Dates: %s → %s\n", formatDay(req.Start), formatDay(req.End))
	fmt.Fprintf(&b, "  Rolling window: %d days\n", req.Window)
	fmt.Fprintf(&b, "  Confidence: %s\n", res.Confidence)
	if res.Basis == risk.ByQuantity {
		b.WriteString("  Basis: quantity (P&L in price units)\n")
	} else {
		fmt.Fprintf(&b, "  Portfolio value: %.2f\n", res.Scale)
	}

	fmt.Fprintf(&b, "\nVaR (1 day, last window)\n")
	fmt.Fprintf(&b, "  Historical: %s\n", formatVaR(res.Summary.Historical))
	fmt.Fprintf(&b, "  Parametric: %s\n", formatVaR(res.Summary.Parametric))
	if req.MonteCarlo {
		fmt.Fprintf(&b, "  Monte Carlo: %s\n", formatVaR(res.Summary.MonteCarlo))
	}
	fmt.Fprintf(&b, "  Observations: %d\n", res.Returns.Count())

	if len(res.Excluded) > 0 {
		fmt.Fprintf(&b, "\nExcluded (no data): %s\n", strings.Join(res.Excluded, ", "))
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(&b, "⚠️ %s\n", w)
	}
	return b.String()
}
