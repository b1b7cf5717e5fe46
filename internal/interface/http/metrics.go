package handlers

import "expvar"

// Counters published under "diary" on /api/debug/vars.
var (
	metrics = expvar.NewMap("diary")
)

const (
	metricLogins        = "logins"
	metricLoginFailures = "login_failures"
	metricLogouts       = "logouts"
	metricEntryWrites   = "entry_writes"
	metricSearches      = "searches"
	metricExports       = "exports"
)
