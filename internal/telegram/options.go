package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"varRiskBot/internal/finance"
	"varRiskBot/internal/risk"
)

// calcOptions are the key=value settings shared by /var and /varport.
type calcOptions struct {
	req     risk.Request
	window  string // lookback such as 1y
	explain bool
}

// splitOptions separates key=value settings and flags from positional
// arguments. Recognised keys: conf, win, value, sims, seed, from, to.
// Flags: mc, explain.
func splitOptions(args []string, now time.Time) (calcOptions, []string, error) {
	var (
		opts calcOptions
		rest []string
	)
	for _, a := range args {
		key, val, ok := strings.Cut(a, "=")
		if !ok {
			switch strings.ToLower(a) {
			case "mc", "montecarlo":
				opts.req.MonteCarlo = true
			case "explain":
				opts.explain = true
			default:
				rest = append(rest, a)
			}
			continue
		}

		var err error
		switch strings.ToLower(key) {
		case "conf", "c":
			opts.req.Confidence, err = strconv.ParseFloat(strings.TrimSuffix(val, "%"), 64)
		case "win", "w":
			opts.req.Window, err = strconv.Atoi(val)
		case "value", "v":
			opts.req.PortfolioValue, err = strconv.ParseFloat(val, 64)
		case "sims":
			opts.req.MonteCarlo = true
			opts.req.Simulations, err = strconv.Atoi(val)
		case "seed":
			var seed uint64
			seed, err = strconv.ParseUint(val, 10, 64)
			opts.req.Seed = &seed
		case "from":
			opts.req.Start, err = time.Parse(time.DateOnly, val)
		case "to":
			opts.req.End, err = time.Parse(time.DateOnly, val)
		default:
			return opts, nil, fmt.Errorf("unknown option %q", key)
		}
		if err != nil {
			return opts, nil, fmt.Errorf("invalid %s=%s", key, val)
		}
	}

	// a trailing lookback applies when no explicit dates were given
	if n := len(rest); n > 0 && finance.IsLookback(rest[n-1]) {
		opts.window = rest[n-1]
		rest = rest[:n-1]
	}
	if opts.req.Start.IsZero() && opts.req.End.IsZero() {
		start, end, err := finance.LookbackRange(opts.window, now)
		if err != nil {
			return opts, nil, err
		}
		opts.req.Start, opts.req.End = start, end
	}
	return opts, rest, nil
}

// parseVar parses /var arguments: SYM [SYM ...] [lookback] [options].
func parseVar(args string, now time.Time) (calcOptions, error) {
	opts, rest, err := splitOptions(strings.Fields(args), now)
	if err != nil {
		return opts, err
	}
	seen := map[string]bool{}
	for _, s := range rest {
		su := strings.ToUpper(strings.TrimSpace(s))
		if su == "" || seen[su] {
			continue
		}
		seen[su] = true
		opts.req.Symbols = append(opts.req.Symbols, su)
	}
	if len(opts.req.Symbols) == 0 {
		return opts, fmt.Errorf("please provide at least one symbol, e.g. /var AAPL 1y")
	}
	return opts, nil
}

// parseVarPort parses /varport arguments: [qty] SYM AMOUNT ... [lookback] [options].
func parseVarPort(args string, now time.Time) (calcOptions, error) {
	opts, rest, err := splitOptions(strings.Fields(args), now)
	if err != nil {
		return opts, err
	}
	p, _, err := finance.ParseHoldingsCommand(strings.Join(rest, " "))
	if err != nil {
		return opts, err
	}
	opts.req.Portfolio = &p
	opts.req.Symbols = p.Symbols()
	return opts, nil
}
