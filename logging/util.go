package logging

import (
	"log/slog"
	"strings"
)

// LevelTrace sits below debug, used for per request logging.
const LevelTrace = slog.LevelDebug - 4

// LevelFromString parses a configured level. Besides the slog names ("DEBUG", "WARN+2")
// it accepts TRACE and WARNING. Missing or unknown values give INFO.
func LevelFromString(str *string) slog.Level {
	if str == nil {
		return slog.LevelInfo
	}

	s := strings.ToUpper(strings.TrimSpace(*str))
	switch s {
	case "":
		return slog.LevelInfo
	case "TRACE":
		return LevelTrace
	case "WARNING":
		return slog.LevelWarn
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
