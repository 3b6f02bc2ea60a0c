package testevents

import "time"

// Command kinds accepted by POST /commands.
const (
	KindSet    = "set"
	KindAdd    = "add"
	KindRemove = "remove"
)

// Generator mix, in percent of generated commands.
const (
	setShare         = 50
	addShare         = 35
	removeShare      = 10
	addSpreadDivisor = 10 // add values fall in [-max/10, max/10]
	overshootSpread  = 10
)

// Defaults applied by Config.withDefaults.
const (
	DefaultPageSize      = 100
	DefaultSettleTimeout = 2 * time.Minute
	DefaultPollInterval  = 200 * time.Millisecond
	DefaultTopN          = 10
)

// Runner configuration constants.
const (
	PercentageMultiplier = 100
	progressInterval     = time.Second
)
