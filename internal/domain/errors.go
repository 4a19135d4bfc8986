package domain

import "errors"

var (
	ErrTickerNotFound    = errors.New("ticker not found")
	ErrSourceSuspended   = errors.New("source suspended after auth failure")
	ErrSourceCoolingDown = errors.New("source cooling down after repeated failures")
)
