// Package ratelimit provides the sliding-window rate limiter for RanobeLIB
// API calls.
package ratelimit

import "time"

// RanobeLIB API limits
//
// The API enforces a ceiling of 90 requests per trailing 60-second window.
// Exceeding it earns an extended server-side block, so the limiter both
// enforces the ceiling and paces admissions evenly across the window
// instead of admitting bursts at window boundaries.
const (
	// RequestCeiling is the maximum number of requests per window.
	RequestCeiling = 90

	// WindowLength is the trailing interval the ceiling applies to.
	WindowLength = 60 * time.Second
)

// warnAfter is the wait length above which the limiter tells the user it is
// throttling, and warnEvery limits how often it repeats itself.
const (
	warnAfter = 2 * time.Second
	warnEvery = 10 * time.Second
)
