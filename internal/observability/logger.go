package observability

import "github.com/tphakala/worktracker-go/internal/logger"

// getLogger resolves the module logger at call time so a central logger
// installed after package init is honoured.
func getLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}
