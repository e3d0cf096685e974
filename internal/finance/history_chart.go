package finance

import (
	"fmt"
	"strings"
	"time"

	"github.com/vicanso/go-charts/v2"

	"varRiskBot/internal/storage"
)

// HistoryView renders the stored calculation history.
type HistoryView struct {
	loc *time.Location
}

func NewHistoryView(loc *time.Location) *HistoryView {
	if loc == nil {
		loc = time.UTC
	}
	return &HistoryView{loc: loc}
}

// barLabel names a history bar and marks the estimates that are undefined,
// since an undefined estimate is drawn with no height.
func (h *HistoryView) barLabel(r storage.Record) string {
	label := fmt.Sprintf("%s %s", r.Created.In(h.loc).Format("01/02 15:04"), strings.Join(r.Tickers, ","))
	switch {
	case r.Historical == nil:
		label += " (hist n/a)"
	case r.Parametric == nil:
		label += " (param n/a)"
	}
	return label
}

// Chart draws historical and parametric VaR per stored calculation. Records
// with neither estimate defined are left out.
func (h *HistoryView) Chart(records []storage.Record) ([]byte, error) {
	var (
		xAxisData   []string
		hist, param []float64
	)
	for _, r := range records {
		if r.Historical == nil && r.Parametric == nil {
			continue
		}
		xAxisData = append(xAxisData, h.barLabel(r))
		var hv, pv float64
		if r.Historical != nil {
			hv = *r.Historical
		}
		if r.Parametric != nil {
			pv = *r.Parametric
		}
		hist = append(hist, hv)
		param = append(param, pv)
	}
	if len(xAxisData) == 0 {
		return nil, fmt.Errorf("no history available")
	}

	p, err := charts.BarRender(
		[][]float64{hist, param},
		charts.XAxisDataOptionFunc(xAxisData),
		charts.TitleTextOptionFunc(fmt.Sprintf("Last %d calculations", len(xAxisData))),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: []string{"Historical VaR", "Parametric VaR"},
			Top:  charts.PositionTop,
			Left: charts.PositionRight,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, err
	}
	return p.Bytes()
}

func formatOptional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}

// Text formats the history newest first.
func (h *HistoryView) Text(records []storage.Record) string {
	if len(records) == 0 {
		return "No calculations recorded yet."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📜 *Last %d calculations*\n\n", len(records))
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		fmt.Fprintf(&b, "*%s* %s\n", strings.Join(r.Tickers, ", "), r.Created.In(h.loc).Format("2006-01-02 15:04"))
		fmt.Fprintf(&b, "  %s → %s, window %d, conf %g, value %.0f\n",
			dateOrOpen(r.Start), dateOrOpen(r.End), r.Window, r.Confidence, r.PortfolioValue)
		fmt.Fprintf(&b, "  hist %s | param %s", formatOptional(r.Historical), formatOptional(r.Parametric))
		if r.MonteCarlo != nil {
			fmt.Fprintf(&b, " | mc %s", formatOptional(r.MonteCarlo))
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func dateOrOpen(t time.Time) string {
	if t.IsZero() {
		return "…"
	}
	return t.Format(time.DateOnly)
}
