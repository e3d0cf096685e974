package finance

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/vicanso/go-charts/v2"
	"gonum.org/v1/gonum/stat"

	"varRiskBot/internal/risk"
)

var ErrNoChartData = errors.New("not enough data points to chart")

const histogramBins = 20

// Charts renders PNG charts for calculation results.
type Charts struct {
	cache *ChartCache
}

func NewCharts(cache *ChartCache) *Charts {
	return &Charts{cache: cache}
}

func dateLabel(n int) string {
	if n <= 60 {
		return "Jan 02"
	}
	return "Jan '06"
}

func splitNumber(n int) int {
	split := 6
	if n <= 30 {
		split = max(n/3, 3)
	}
	return split
}

// RollingVaR draws the historical and parametric rolling VaR series over the
// dates where both are defined. key identifies the calculation for caching.
func (c *Charts) RollingVaR(key string, res *risk.Result) ([]byte, error) {
	return c.cache.render("var|"+key, func() ([]byte, error) {
		var (
			xLabels     []string
			hist, param []float64
		)
		layout := dateLabel(res.HistoricalVaR.Len())
		for i, d := range res.HistoricalVaR.Dates {
			h, p := res.HistoricalVaR.Values[i], res.ParametricVaR.Values[i]
			if risk.IsMissing(h) || risk.IsMissing(p) {
				continue
			}
			xLabels = append(xLabels, d.Format(layout))
			hist = append(hist, h)
			param = append(param, p)
		}
		if len(xLabels) < 2 {
			return nil, ErrNoChartData
		}

		yMin, yMax := bounds(append(append([]float64{}, hist...), param...))
		padding := (yMax - yMin) * 0.05
		if padding == 0 {
			padding = math.Max(yMax*0.05, 1e-9)
		}
		yMin = math.Max(0, yMin-padding)
		yMax += padding

		title := fmt.Sprintf("Rolling %d-day VaR @ %s", res.Window, res.Confidence)
		subtitle := strings.Join(res.Included, ", ")
		if res.Basis == risk.ByWeight {
			if s, err := DescribeReturns(res.Returns); err == nil {
				subtitle += fmt.Sprintf(" | Return: %.2f%% | Vol: %.2f%% | MaxDD: %.2f%%",
					s.TotalReturn, s.Volatility, s.MaxDrawdown)
			}
		}

		p, err := charts.LineRender(
			[][]float64{hist, param},
			charts.TitleTextOptionFunc(title, subtitle),
			charts.XAxisOptionFunc(charts.XAxisOption{
				Data:        xLabels,
				SplitNumber: splitNumber(len(xLabels)),
				BoundaryGap: charts.FalseFlag(),
			}),
			charts.YAxisOptionFunc(charts.YAxisOption{
				Min:         &yMin,
				Max:         &yMax,
				DivideCount: 5,
			}),
			charts.LegendOptionFunc(charts.LegendOption{
				Data: []string{"Historical", "Parametric"},
				Left: charts.PositionRight,
			}),
			charts.ThemeOptionFunc(charts.ThemeLight),
			charts.WidthOptionFunc(900),
			charts.HeightOptionFunc(500),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to render chart: %w", err)
		}
		buf, err := p.Bytes()
		if err != nil {
			return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
		}
		return buf, nil
	})
}

// ReturnHistogram draws the distribution of the P&L series.
func (c *Charts) ReturnHistogram(key string, res *risk.Result) ([]byte, error) {
	return c.cache.render("hist|"+key, func() ([]byte, error) {
		labels, counts, err := histogram(res.Returns.Defined().Values, histogramBins, res.Basis == risk.ByWeight)
		if err != nil {
			return nil, err
		}
		title := "Return distribution"
		if res.Basis == risk.ByQuantity {
			title = "P&L distribution"
		}
		p, err := charts.BarRender(
			[][]float64{counts},
			charts.TitleTextOptionFunc(title, fmt.Sprintf("%d observations", res.Returns.Count())),
			charts.XAxisDataOptionFunc(labels),
			charts.ThemeOptionFunc(charts.ThemeLight),
			charts.WidthOptionFunc(900),
			charts.HeightOptionFunc(500),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to render chart: %w", err)
		}
		return p.Bytes()
	})
}

// histogram bins values into n equal-width buckets labelled by their centre.
func histogram(values []float64, n int, percent bool) ([]string, []float64, error) {
	if len(values) < 2 {
		return nil, nil, ErrNoChartData
	}
	x := append([]float64(nil), values...)
	sort.Float64s(x)
	lo, hi := x[0], x[len(x)-1]
	if lo == hi {
		n = 1
	}

	dividers := make([]float64, n+1)
	width := (hi - lo) / float64(n)
	for i := range dividers {
		dividers[i] = lo + float64(i)*width
	}
	dividers[n] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, x, nil)
	labels := make([]string, n)
	for i := range labels {
		mid := (dividers[i] + dividers[i+1]) / 2
		if percent {
			labels[i] = fmt.Sprintf("%.1f%%", mid*100)
		} else {
			labels[i] = fmt.Sprintf("%.0f", mid)
		}
	}
	return labels, counts, nil
}

func bounds(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
