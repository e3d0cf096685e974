package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"varRiskBot/internal/finance"
	"varRiskBot/internal/metrics"
	"varRiskBot/internal/risk"
	"varRiskBot/internal/service"
	"varRiskBot/internal/storage"
	"varRiskBot/pkg/logger"
)

func main() {
	prices := flag.String("prices", "data/prices.csv", "price CSV (Date,Symbol,Close), or \"yahoo\" to download")
	tickers := flag.String("tickers", "", "comma separated symbols, held in equal weights")
	portfolioPath := flag.String("portfolio", "", "portfolio file (CSV Ticker,Weight|Quantity or YAML)")
	startStr := flag.String("start", "", "first date, YYYY-MM-DD")
	endStr := flag.String("end", "", "last date, YYYY-MM-DD")
	lookback := flag.String("lookback", "", "date range ending today when -start/-end are unset, e.g. 1y, 6m")
	window := flag.Int("window", 30, "rolling window in trading days")
	confidence := flag.Float64("confidence", 95, "confidence level, percent or fraction")
	value := flag.Float64("value", 0, "portfolio value for weight portfolios (default 100000)")
	mc := flag.Bool("mc", false, "also run Monte Carlo")
	sims := flag.Int("sims", risk.DefaultSimulations, "Monte Carlo simulation count")
	seed := flag.Int64("seed", -1, "Monte Carlo seed, negative for random")
	historyPath := flag.String("history", "history.csv", "history CSV, empty to skip recording")
	showHistory := flag.Bool("show-history", false, "print the stored history and exit")
	outDir := flag.String("out", "", "directory for PNG charts, empty to skip")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log := logger.NewWithWriter(logger.Config{Level: level, Pretty: true}, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var history storage.HistoryStore
	if *historyPath != "" {
		store, err := storage.NewCSVStore(*historyPath, storage.DefaultCapacity)
		if err != nil {
			fail("open history: %v", err)
		}
		history = store
	}

	if *showHistory {
		if history == nil {
			fail("-show-history needs -history")
		}
		records, err := history.List(ctx)
		if err != nil {
			fail("read history: %v", err)
		}
		fmt.Print(finance.NewHistoryView(time.Local).Text(records))
		return
	}

	req := risk.Request{
		Window:         *window,
		Confidence:     *confidence,
		PortfolioValue: *value,
		MonteCarlo:     *mc,
		Simulations:    *sims,
	}
	if *seed >= 0 {
		s := uint64(*seed)
		req.Seed = &s
	}
	if *portfolioPath != "" {
		p, err := finance.LoadPortfolio(*portfolioPath)
		if err != nil {
			fail("%v", err)
		}
		req.Portfolio = &p
		req.Symbols = p.Symbols()
	} else {
		for _, t := range strings.Split(*tickers, ",") {
			if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
				req.Symbols = append(req.Symbols, t)
			}
		}
	}
	if err := parseDates(&req, *startStr, *endStr, *lookback); err != nil {
		fail("%v", err)
	}

	var source finance.PriceSource
	if strings.EqualFold(*prices, "yahoo") {
		source = finance.NewYahooSource(log)
	} else {
		source = finance.NewCSVSource(*prices, true, log)
	}

	svc := service.New(source, history, metrics.New(), service.Defaults{
		Window:         30,
		Confidence:     95,
		PortfolioValue: 100000,
		Simulations:    risk.DefaultSimulations,
	}, log)
	out, err := svc.Calculate(ctx, "cli", svc.WithDefaults(req))
	if err != nil {
		fail("%s", service.Describe(err))
	}
	fmt.Println(service.Summary(out))

	if *outDir != "" {
		if err := writeCharts(*outDir, out, log); err != nil {
			fail("write charts: %v", err)
		}
	}
}

func parseDates(req *risk.Request, start, end, lookback string) error {
	var err error
	if start != "" {
		if req.Start, err = time.Parse(time.DateOnly, start); err != nil {
			return fmt.Errorf("invalid -start: %w", err)
		}
	}
	if end != "" {
		if req.End, err = time.Parse(time.DateOnly, end); err != nil {
			return fmt.Errorf("invalid -end: %w", err)
		}
	}
	if start == "" && end == "" && lookback != "" {
		req.Start, req.End, err = finance.LookbackRange(lookback, time.Now())
	}
	return err
}

func writeCharts(dir string, out *service.Outcome, log zerolog.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	charts := finance.NewCharts(nil)
	for name, render := range map[string]func(string, *risk.Result) ([]byte, error){
		"rolling_var.png":      charts.RollingVaR,
		"return_histogram.png": charts.ReturnHistogram,
	} {
		img, err := render(finance.ChartKey(out.Request), out.Result)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, img, 0o644); err != nil {
			return err
		}
		log.Debug().Str("path", path).Msg("chart written")
		fmt.Fprintf(os.Stderr, "wrote %s\n", path)
	}
	return nil
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "varcalc: "+format+"\n", args...)
	os.Exit(1)
}
