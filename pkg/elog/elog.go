// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

// Package elog extends Go's logging functionality to allow for multiple
// named loggers, each with its own severity level. Call AddLogger to
// register a sink, then use the package-level Debug/Info/Warn/Error/Fatal
// functions; every registered sink at or below a message's level receives
// it.
package elog

import (
	"flag"
	"fmt"
	golog "log"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

var (
	LevelFlag = flag.String("level", "warn", "set log level: [debug, info, warn, error, fatal]")
	Verbose   = flag.Bool("v", true, "log on stderr")
	LogFile   = flag.String("logfile", "", "also log to file")
)

var (
	loggers = make(map[string]*sink)
	logLock sync.RWMutex
)

type logWriter interface {
	Println(...interface{})
}

type sink struct {
	logWriter
	level   Level
	filters []string
}

// AddLogger registers a sink that receives messages at level or higher.
func AddLogger(name string, output io.Writer, level Level) {
	logLock.Lock()
	defer logLock.Unlock()

	loggers[name] = &sink{
		logWriter: golog.New(output, "", golog.LstdFlags),
		level:     level,
	}
}

// DelLogger removes a previously registered sink.
func DelLogger(name string) {
	logLock.Lock()
	defer logLock.Unlock()
	delete(loggers, name)
}

// WillLog reports whether a message at level would reach any sink. Useful
// when formatting the message itself is expensive.
func WillLog(level Level) bool {
	logLock.RLock()
	defer logLock.RUnlock()

	for _, s := range loggers {
		if s.level <= level {
			return true
		}
	}
	return false
}

// AddFilter suppresses any message containing the substring filter from the
// named sink.
func AddFilter(name, filter string) error {
	logLock.Lock()
	defer logLock.Unlock()

	s, ok := loggers[name]
	if !ok {
		return fmt.Errorf("no such logger %v", name)
	}
	for _, f := range s.filters {
		if f == filter {
			return nil
		}
	}
	s.filters = append(s.filters, filter)
	return nil
}

// Init sets up logging according to the LevelFlag/Verbose/LogFile flags.
// Callers that want flag-free setup should call AddLogger directly instead.
func Init(component string) error {
	level, err := ParseLevel(*LevelFlag)
	if err != nil {
		return err
	}

	if *Verbose {
		AddLogger("stderr", os.Stderr, level)
	}

	if *LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(*LogFile), 0755); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(*LogFile, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0660)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		AddLogger("file", f, level)
	}

	Info("%v starting, log level %v", component, level)
	return nil
}

func callerPrefix() string {
	_, file, line, ok := runtime.Caller(3)
	if !ok {
		return ""
	}
	short := file
	for i := len(file) - 1; i > 0; i-- {
		if file[i] == '/' {
			short = file[i+1:]
			break
		}
	}
	return fmt.Sprintf("%v:%v: ", short, line)
}

func dispatch(level Level, format string, arg ...interface{}) {
	logLock.RLock()
	defer logLock.RUnlock()

	if len(loggers) == 0 {
		return
	}

	msg := level.String() + " " + callerPrefix() + fmt.Sprintf(format, arg...)
	for _, s := range loggers {
		if s.level <= level {
			filtered := false
			for _, f := range s.filters {
				if strings.Contains(msg, f) {
					filtered = true
					break
				}
			}
			if !filtered {
				s.Println(msg)
			}
		}
	}
}

func Debug(format string, arg ...interface{}) { dispatch(LevelDebug, format, arg...) }
func Info(format string, arg ...interface{})  { dispatch(LevelInfo, format, arg...) }
func Warn(format string, arg ...interface{})  { dispatch(LevelWarn, format, arg...) }
func Error(format string, arg ...interface{}) { dispatch(LevelError, format, arg...) }

// Fatal logs at fatal level and terminates the process, matching the
// teacher's own log.Fatal behavior.
func Fatal(format string, arg ...interface{}) {
	dispatch(LevelFatal, format, arg...)
	os.Exit(1)
}
