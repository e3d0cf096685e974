package finance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var errNoYahooData = errors.New("no data")

const (
	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15"
	previewLen = 120
)

// rawSeries is a daily close series as Yahoo returns it. Null closes are NaN.
type rawSeries struct {
	timestamps []int64
	closes     []float64
	gmtOffset  int
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > previewLen {
		s = s[:previewLen]
	}
	return s
}

func closesOf(in []*float64) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	return out
}

// get performs one request and returns the body of a 200 JSON response.
func (y *YahooSource) get(ctx context.Context, host, path string, query url.Values, symbol string) ([]byte, error) {
	u := fmt.Sprintf("https://%s%s?%s", host, path, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", fmt.Sprintf("https://finance.yahoo.com/quote/%s/chart", strings.ToUpper(symbol)))

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, err
	}
	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("failed to read yahoo response: %w", readErr)
	}
	if resp.StatusCode == http.StatusTooManyRequests || strings.HasPrefix(string(body), "Edge: Too Many Requests") {
		return nil, fmt.Errorf("yahoo %s returned 429: Edge: Too Many Requests", host)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo %s returned %d: %s", host, resp.StatusCode, preview(body))
	}
	if strings.HasPrefix(string(body), "<") || strings.HasPrefix(string(body), "Edge:") {
		return nil, fmt.Errorf("yahoo returned non-json body: %s", preview(body))
	}
	return body, nil
}

// retry walks every host once per attempt, sleeping the backoff between
// attempts, until try succeeds or the attempts run out.
func (y *YahooSource) retry(ctx context.Context, try func(host string) error) error {
	var lastErr error
	for attempt := 0; attempt <= len(y.backoffs); attempt++ {
		for _, host := range y.hosts {
			if err := ctx.Err(); err != nil {
				return err
			}
			if lastErr = try(host); lastErr == nil {
				return nil
			}
			y.log.Debug().Err(lastErr).Str("host", host).Int("attempt", attempt).Msg("yahoo request failed")
		}
		if attempt < len(y.backoffs) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(y.backoffs[attempt]):
			}
		}
	}
	return lastErr
}

// fetchDaily fetches daily closes for symbol between from and to, falling
// back to the spark endpoint when the chart endpoint keeps failing.
func (y *YahooSource) fetchDaily(ctx context.Context, symbol string, from, to time.Time) (rawSeries, error) {
	var out rawSeries
	chartQuery := url.Values{
		"period1":  {fmt.Sprint(from.Unix())},
		"period2":  {fmt.Sprint(to.Unix())},
		"interval": {"1d"},
		"events":   {"div,splits"},
	}
	err := y.retry(ctx, func(host string) error {
		body, err := y.get(ctx, host, "/v8/finance/chart/"+url.PathEscape(symbol), chartQuery, symbol)
		if err != nil {
			return err
		}
		var yc yahooChartResp
		if err := json.Unmarshal(body, &yc); err != nil {
			return fmt.Errorf("failed to parse yahoo json: %v; body: %s", err, preview(body))
		}
		if len(yc.Chart.Result) == 0 || len(yc.Chart.Result[0].Indicators.Quote) == 0 {
			return errNoYahooData
		}
		res := yc.Chart.Result[0]
		out = rawSeries{
			timestamps: res.Timestamp,
			closes:     closesOf(res.Indicators.Quote[0].Close),
			gmtOffset:  res.Meta.GmtOffset,
		}
		return nil
	})
	if err == nil || ctx.Err() != nil {
		return out, err
	}

	y.log.Warn().Err(err).Str("symbol", symbol).Msg("yahoo chart failed, trying spark")
	sparkQuery := url.Values{
		"symbols":  {strings.ToUpper(symbol)},
		"range":    {sparkRange(from, to)},
		"interval": {"1d"},
	}
	err = y.retry(ctx, func(host string) error {
		body, err := y.get(ctx, host, "/v7/finance/spark", sparkQuery, symbol)
		if err != nil {
			return err
		}
		var sp yahooSparkResp
		if err := json.Unmarshal(body, &sp); err != nil {
			return fmt.Errorf("failed to parse yahoo spark json: %v", err)
		}
		if len(sp.Spark.Result) == 0 || len(sp.Spark.Result[0].Response) == 0 {
			return errNoYahooData
		}
		r := sp.Spark.Result[0].Response[0]
		out = rawSeries{timestamps: r.Timestamp, closes: closesOf(r.Close), gmtOffset: r.Meta.GmtOffset}
		return nil
	})
	return out, err
}

// sparkRange picks the smallest spark range covering from.
func sparkRange(from, to time.Time) string {
	days := int(to.Sub(from).Hours()/24) + 1
	return yahooRangeForDays(days)
}
