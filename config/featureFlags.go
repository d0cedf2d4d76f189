package config

import (
	"os"
	"strings"
	"time"
)

// AutoAppliedDateDefault is the default of the "set applied on date" toggle:
// when true, applied-credit records are dated today instead of the credit's own date.
//
// Set via env:
// - VENDOR_CREDIT_AUTO_APPLIED_DATE=false
func AutoAppliedDateDefault() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("VENDOR_CREDIT_AUTO_APPLIED_DATE")))
	if v == "" {
		return true
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// LockTTL bounds how long a commit may hold its credit/bill locks.
//
// Set via env:
// - LOCK_TTL_SECONDS=30
func LockTTL() time.Duration {
	n := intFromEnv("LOCK_TTL_SECONDS", 30)
	if n <= 0 {
		n = 30
	}
	return time.Duration(n) * time.Second
}
