package carcomms

import (
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

type Logger interface {
	Info(...interface{})
	Debug(...interface{})
	Error(...interface{})
	Warn(...interface{})

	Infof(string, ...interface{})
	Debugf(string, ...interface{})
	Errorf(string, ...interface{})
	Warnf(string, ...interface{})

	ChildLogger(tags map[string]interface{}) Logger
}

var logger Logger
var loggerMu sync.Mutex

// SetLogLevel sets the level of the logrus logger behind the package
// logger, by name ("debug", "info", ...). Child loggers follow it.
func SetLogLevel(name string) error {
	lvl, err := logrus.ParseLevel(name)
	if err != nil {
		return err
	}

	l, ok := GetLogger().(*defaultLogger)
	if !ok {
		return fmt.Errorf("custom logger, can't set level %s", lvl)
	}
	l.Entry.Logger.SetLevel(lvl)
	return nil
}

func SetLogger(l Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l
}

func GetLogger() Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if logger == nil {
		logger = NewLogger(&logrus.Logger{
			Formatter: &logrus.TextFormatter{DisableTimestamp: true},
			Level:     logrus.InfoLevel,
			Out:       os.Stderr,
			Hooks:     make(logrus.LevelHooks),
		})
	}

	return logger
}

// NewLogger wraps l. Every entry carries node=carcomms so the output can
// be told apart when it shares a journal with the bluetooth daemon.
func NewLogger(l *logrus.Logger) Logger {
	return &defaultLogger{Entry: l.WithField("node", "carcomms")}
}

type defaultLogger struct {
	*logrus.Entry
}

func (d *defaultLogger) ChildLogger(ff map[string]interface{}) Logger {
	return &defaultLogger{d.Entry.WithFields(ff)}
}
