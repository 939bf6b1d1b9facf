/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package log

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

type LogLevel int32

const (
	LogPrefix     = "[go-rda] "
	ErrorPrefix   = "[error] "
	WarningPrefix = "[warn] "
	InfoPrefix    = "[info] "
	DebugPrefix   = "[debug] "
	HelpLevels    = "Must be one of: error, warning, info, debug."
)

const (
	ErrorLevel LogLevel = iota
	WarningLevel
	InfoLevel
	DebugLevel
)

var levelMapping = map[string]LogLevel{
	"error":   ErrorLevel,
	"warning": WarningLevel,
	"info":    InfoLevel,
	"debug":   DebugLevel,
}

// Logger is read by the reader task, the sink consumers and the API server
// at the same time, so the level is kept in an atomic.
type Logger struct {
	level atomic.Int32
	*log.Logger
}

var logger = newLogger()

func newLogger() *Logger {
	l := &Logger{Logger: log.New(os.Stderr, LogPrefix, log.LstdFlags|log.Lmicroseconds)}
	l.level.Store(int32(InfoLevel))
	return l
}

func ParseLevel(strLevel string) (LogLevel, error) {
	level, ok := levelMapping[strings.ToLower(strings.TrimSpace(strLevel))]
	if !ok {
		return ErrorLevel, errors.New("Wrong log level. " + HelpLevels)
	}
	return level, nil
}

func SetLevel(strLevel string) error {
	level, err := ParseLevel(strLevel)
	if err != nil {
		return err
	}
	logger.level.Store(int32(level))
	return nil
}

// Init sets log output and level. An empty level keeps the current one.
func Init(out io.Writer, strLevel string) error {
	logger.SetOutput(out)
	if strLevel == "" {
		return nil
	}
	return SetLevel(strLevel)
}

// Enabled reports whether messages of the given level are printed.
func Enabled(level LogLevel) bool {
	return LogLevel(logger.level.Load()) >= level
}

func Error(format string, v ...interface{}) {
	if Enabled(ErrorLevel) {
		logger.Println(fmt.Sprintf(ErrorPrefix+format, v...))
	}
}

func Warning(format string, v ...interface{}) {
	if Enabled(WarningLevel) {
		logger.Println(fmt.Sprintf(WarningPrefix+format, v...))
	}
}

func Info(format string, v ...interface{}) {
	if Enabled(InfoLevel) {
		logger.Println(fmt.Sprintf(InfoPrefix+format, v...))
	}
}

func Debug(format string, v ...interface{}) {
	if Enabled(DebugLevel) {
		logger.Println(fmt.Sprintf(DebugPrefix+format, v...))
	}
}

type infoWriter struct{}

func (infoWriter) Write(p []byte) (int, error) {
	Info("%s", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// Writer returns an io.Writer which prints every write as an info message.
// It is used to route HTTP access logs through the same logger.
func Writer() io.Writer {
	return infoWriter{}
}
