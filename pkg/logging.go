package dupelink

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var globalVerboseLevel int
var debugFlags map[string]bool

// SetupLogger configures the global logger for the given verbose level
// (0=warn, 1=info, 2=debug, 3+=trace) and comma-separated debug categories.
// Logs go to w, or stderr when w is nil.
func SetupLogger(w io.Writer, level int, debug string) {
	if w == nil {
		w = os.Stderr
	}
	globalVerboseLevel = level
	SetDebugFlags(debug)

	switch {
	case level <= 0:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case level == 1:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case level == 2:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	}
	// Debug categories need trace events to get through
	if len(debugFlags) > 0 && level < 3 {
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	}

	console := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.Kitchen,
	}
	log.Logger = zerolog.New(console).With().Timestamp().Logger()
	if level >= 2 {
		log.Logger = log.Logger.With().Caller().Logger()
	}

	log.Debug().Int("verbosity", level).Str("debug", debug).Msg("Logger initialised")
}

// GetLogger returns a logger tagged with a component name
func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// GetVerboseLevel returns the current verbose level
func GetVerboseLevel() int {
	return globalVerboseLevel
}

// SetDebugFlags sets the debug flags from a comma-separated string
// Supports both simple flags ("walk,hash") and key:value format ("walk:true,hash:false")
func SetDebugFlags(flagsStr string) {
	debugFlags = make(map[string]bool)
	if flagsStr == "" {
		return
	}

	for _, flag := range strings.Split(flagsStr, ",") {
		flag = strings.TrimSpace(flag)
		if flag == "" {
			continue
		}

		parts := strings.SplitN(flag, ":", 2)
		flagName := strings.ToLower(parts[0])
		flagValue := true

		if len(parts) > 1 {
			switch strings.ToLower(parts[1]) {
			case "false", "0", "no", "off":
				flagValue = false
			}
		}

		if flagValue {
			debugFlags[flagName] = true
		}
	}
}

// IsDebugEnabled returns true if the specified debug flag is enabled
func IsDebugEnabled(flag string) bool {
	if debugFlags == nil {
		return false
	}
	return debugFlags[strings.ToLower(flag)] || debugFlags["all"]
}

// debugEvent returns a trace event for a debug category, or nil when the category is off.
// zerolog treats nil events as no-ops.
func debugEvent(logger *zerolog.Logger, category string) *zerolog.Event {
	if !IsDebugEnabled(category) {
		return nil
	}
	return logger.Trace().Str("debug", category)
}
