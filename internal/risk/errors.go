package risk

import "errors"

var (
	// ErrInvalidConfig marks a request rejected before any computation.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInvalidWindow is returned for a rolling window below 1.
	ErrInvalidWindow = errors.New("window must be >= 1")
	// ErrInsufficientData is returned when fewer than 2 prices are available.
	ErrInsufficientData = errors.New("need at least 2 price observations")
	// ErrNoData is returned when none of the requested instruments has data.
	ErrNoData = errors.New("no data available for requested instruments")
	// ErrNoResult is returned when data exists but no estimate can be produced,
	// e.g. the window is larger than the available history.
	ErrNoResult = errors.New("no result available")
)
