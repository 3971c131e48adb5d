package application

import "errors"

var ErrNotFound = errors.New("not found")
var ErrBadRequest = errors.New("bad request")

var (
	// ErrAggregationFailed means no source produced a usable price.
	ErrAggregationFailed = errors.New("aggregation failed")
	// ErrNoDataAvailable is what callers of the quote service see when
	// aggregation failed; it must be rendered as "unavailable".
	ErrNoDataAvailable = errors.New("no data available")
	ErrUnknownChannel  = errors.New("unknown channel")
)
