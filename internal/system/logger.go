package system

import (
	"os"

	clog "github.com/charmbracelet/log"
)

// Logger is the shared logger for everything outside the PTY byte
// stream. It writes to stderr so log lines never interleave with
// forwarded terminal output.
var Logger = clog.NewWithOptions(os.Stderr, clog.Options{
	ReportTimestamp: true,
})
