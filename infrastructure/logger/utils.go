package logger

import (
	"time"
)

// LogAndMeasureExecutionTime logs that the named function has started and
// returns a closure that logs its end together with its run time.
func LogAndMeasureExecutionTime(log *Logger, functionName string) (onEnd func()) {
	start := time.Now()
	log.Debugf("%s start", functionName)
	return func() {
		log.Debugf("%s end. Took: %s", functionName, time.Since(start))
	}
}
