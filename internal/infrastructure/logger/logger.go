package logger

import (
	"io"
	"log"
	"os"
	"strings"
)

var (
	Info  *log.Logger
	Error *log.Logger
	Debug *log.Logger
	Warn  *log.Logger
)

const logFlags = log.Ldate | log.Ltime | log.LUTC | log.Lshortfile

func init() {
	Configure("info", os.Stdout)
}

// Configure points every logger at w. Debug output is discarded unless level
// is "debug"; "warn" and "error" silence the lower levels the same way.
func Configure(level string, w io.Writer) {
	level = strings.ToLower(strings.TrimSpace(level))

	debugOut, infoOut, warnOut := io.Discard, io.Discard, io.Discard
	switch level {
	case "debug":
		debugOut, infoOut, warnOut = w, w, w
	case "warn", "warning":
		warnOut = w
	case "error":
	default:
		infoOut, warnOut = w, w
	}

	Debug = log.New(debugOut, "DEBUG: ", logFlags)
	Info = log.New(infoOut, "INFO: ", logFlags)
	Warn = log.New(warnOut, "WARN: ", logFlags)
	Error = log.New(w, "ERROR: ", logFlags)
}
