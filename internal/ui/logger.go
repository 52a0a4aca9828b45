// Package ui provides terminal styling and logging setup for vecmem.
package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// InitLogger points the charm logger at stderr. Stdout is reserved for the
// MCP stdio transport and for command output.
func InitLogger() {
	ConfigureLogger(os.Stderr, false)
}

// ConfigureLogger sets the logger output and level.
func ConfigureLogger(w io.Writer, debug bool) {
	log.SetOutput(w)
	log.SetReportCaller(false)
	log.SetReportTimestamp(debug)
	SetDebug(debug)
}

// SetDebug enables debug logging.
func SetDebug(enabled bool) {
	if enabled {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}
