package config

import "time"

// Path config
const (
	LogPath    = "./logs/"
	ConfigPath = "./"
)

// Relay config
const (
	// Jito enforces at most 5 transactions per bundle.
	MaxBundleTxs = 5

	// Tips below the floor are rejected by the block engine outright,
	// so amounts under it are clamped up before building the tip tx.
	MinTipLamports     = 1000
	DefaultTipLamports = 50000

	DefaultRegion = "mainnet"
)

// Network config
const (
	DefaultRetryTimes    = 3
	DefaultRetryInterval = 100 * time.Millisecond
	DefaultTimeout       = 20 * time.Second
)

// Confirmation config
const (
	// Tick interval of the status poll loop. Statuses propagate through
	// the relay with a delay of a few slots, polling faster buys nothing
	// and risks rate limiting.
	DefaultPollInterval = 2 * time.Second

	// Budget for one bare confirmation call.
	DefaultConfirmTimeout = 60 * time.Second

	// Budget for a whole run: build, sign, submit, confirm.
	DefaultOverallTimeout = 600 * time.Second

	// How long a fetched tip-account set stays fresh. The published set
	// changes rarely, re-fetching every bundle is wasted round trips.
	TipAccountsTTL = 10 * time.Minute
)

// History config
const (
	HISTORY_RECENT_QUERY_LIMIT = 100
	SEEN_CACHE_CAPACITY        = 10000
)
