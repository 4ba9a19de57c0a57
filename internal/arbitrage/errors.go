package arbitrage

import "errors"

var (
	ErrAlreadyRunning = errors.New("engine already running")
	ErrNotRunning     = errors.New("engine not running")
	ErrInvalidConfig  = errors.New("invalid engine config")
)
