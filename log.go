package esplayer

import (
	"fmt"
	"log"

	"github.com/gookit/color"
)

// LogLevel is a log level.
type LogLevel int

// Log levels.
const (
	LogLevelDebug LogLevel = iota + 1
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return color.Gray.Sprint("DEB")
	case LogLevelInfo:
		return color.Green.Sprint("INF")
	case LogLevelWarn:
		return color.Yellow.Sprint("WAR")
	case LogLevelError:
		return color.Red.Sprint("ERR")
	}
	return "???"
}

// LogFunc is the prototype of the log function.
type LogFunc func(level LogLevel, format string, args ...interface{})

func defaultLog(level LogLevel, format string, args ...interface{}) {
	log.Printf("%s %s", level, fmt.Sprintf(format, args...))
}
