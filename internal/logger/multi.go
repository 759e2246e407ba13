package logger

// MultiLogger forwards every message to each of its loggers in order.
type MultiLogger []Logger

// NewMultiLogger builds a MultiLogger, dropping nil entries.
func NewMultiLogger(loggers ...Logger) MultiLogger {
	var ml MultiLogger
	for _, l := range loggers {
		if l != nil {
			ml = append(ml, l)
		}
	}
	return ml
}

func (ml MultiLogger) LogTrace(message string) {
	for _, l := range ml {
		l.LogTrace(message)
	}
}

func (ml MultiLogger) LogDebug(message string) {
	for _, l := range ml {
		l.LogDebug(message)
	}
}

func (ml MultiLogger) LogInfo(message string) {
	for _, l := range ml {
		l.LogInfo(message)
	}
}

func (ml MultiLogger) LogWarn(message string) {
	for _, l := range ml {
		l.LogWarn(message)
	}
}

func (ml MultiLogger) LogError(message string) {
	for _, l := range ml {
		l.LogError(message)
	}
}
