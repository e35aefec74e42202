// Package obslog provides the single shared logrus logger every other
// package logs through. Library code (pathtable, constrainttable,
// planner) stays silent and returns values; only the coordinator,
// tasksource, telemetry, and the CLI call into this package.
package obslog

import "github.com/sirupsen/logrus"

// Log is the process-wide logger. It is safe for concurrent use.
var Log *logrus.Logger

func init() {
	Log = logrus.New()
	Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	Log.SetLevel(logrus.InfoLevel)
}

// Setup applies a textual level ("debug", "info", "warn", "error") to
// the shared logger, defaulting to info on an unrecognized value.
func Setup(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)
}
