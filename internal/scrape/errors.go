package scrape

import "errors"

var (
	// ErrTimeout marks a scraper call that exceeded its per-call budget.
	// Retried within the keyword's retry budget, then surfaced per item.
	ErrTimeout = errors.New("scraper timeout")
	// ErrExit marks a nonzero scraper exit. Permanent for the item.
	ErrExit = errors.New("scraper exit")
	// ErrParse marks malformed scraper output. The item is skipped.
	ErrParse = errors.New("scraper parse error")
)
