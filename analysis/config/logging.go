// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"io"
	"log"
	"os"
)

// LogLevel is the verbosity of a LogGroup
type LogLevel int

const (
	// ErrLevel=1 - the minimum level of logging.
	ErrLevel LogLevel = iota + 1

	// WarnLevel=2 - the level for logging warnings, and errors
	WarnLevel

	// InfoLevel=3 - the level for logging high-level information, results
	InfoLevel

	// DebugLevel=4 - the level for debugging information. The solver logs merges, collapses and new call edges at
	// that level, which stays usable on large graphs.
	DebugLevel

	// TraceLevel=5 - the level for tracing. Every processed node is logged, which is only useful on small graphs.
	TraceLevel
)

var levelPrefixes = [...]string{
	ErrLevel:   "[ERROR] ",
	WarnLevel:  "[WARN] ",
	InfoLevel:  "[INFO] ",
	DebugLevel: "[DEBUG] ",
	TraceLevel: "[TRACE] ",
}

// LogGroup is a group of loggers, one per level. Messages above the level of the group are dropped.
type LogGroup struct {
	level       LogLevel
	silenceWarn bool
	loggers     [TraceLevel + 1]*log.Logger
}

// NewLogGroup returns a log group writing to stderr with the level and warning settings of config
func NewLogGroup(config *Config) *LogGroup {
	l := &LogGroup{
		level:       LogLevel(config.LogLevel),
		silenceWarn: config.SilenceWarn,
	}
	for lvl := ErrLevel; lvl <= TraceLevel; lvl++ {
		l.loggers[lvl] = log.New(os.Stderr, levelPrefixes[lvl], log.LstdFlags)
	}
	return l
}

// SetAllOutput sets all the output writers to the writer provided
func (l *LogGroup) SetAllOutput(w io.Writer) {
	for lvl := ErrLevel; lvl <= TraceLevel; lvl++ {
		l.loggers[lvl].SetOutput(w)
	}
}

// SetAllFlags sets the flag of all loggers in the log group to the argument provided
func (l *LogGroup) SetAllFlags(x int) {
	for lvl := ErrLevel; lvl <= TraceLevel; lvl++ {
		l.loggers[lvl].SetFlags(x)
	}
}

// Level returns the level of the log group
func (l *LogGroup) Level() LogLevel {
	return l.level
}

// Enabled returns true if messages of level lvl are printed. Callers that build expensive messages should check it
// first.
func (l *LogGroup) Enabled(lvl LogLevel) bool {
	if lvl == WarnLevel && l.silenceWarn {
		return false
	}
	return lvl >= ErrLevel && lvl <= l.level
}

func (l *LogGroup) printf(lvl LogLevel, format string, v ...any) {
	if l.Enabled(lvl) {
		l.loggers[lvl].Printf(format, v...)
	}
}

// Tracef prints to the trace logger. Arguments are handled in the manner of Printf
func (l *LogGroup) Tracef(format string, v ...any) { l.printf(TraceLevel, format, v...) }

// Debugf prints to the debug logger. Arguments are handled in the manner of Printf
func (l *LogGroup) Debugf(format string, v ...any) { l.printf(DebugLevel, format, v...) }

// Infof prints to the info logger. Arguments are handled in the manner of Printf
func (l *LogGroup) Infof(format string, v ...any) { l.printf(InfoLevel, format, v...) }

// Warnf prints to the warning logger, unless warnings are silenced
func (l *LogGroup) Warnf(format string, v ...any) { l.printf(WarnLevel, format, v...) }

// Errorf prints to the error logger
func (l *LogGroup) Errorf(format string, v ...any) { l.printf(ErrLevel, format, v...) }
