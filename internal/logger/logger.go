package logger

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Category  string `json:"category"`
	Message   string `json:"message"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
}

// Logger writes colored category-tagged lines to the terminal and JSON
// lines to a dated file under logs/.
type Logger struct {
	fileLogger *log.Logger
	logFile    *os.File
}

func NewLogger() *Logger {
	if err := os.MkdirAll("logs", 0755); err != nil {
		log.Fatal("Failed to create logs directory:", err)
	}

	logFileName := fmt.Sprintf("logs/workshop-tickets-%s.log", time.Now().Format("2006-01-02"))
	logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatal("Failed to create log file:", err)
	}

	return &Logger{
		fileLogger: log.New(logFile, "", 0),
		logFile:    logFile,
	}
}

func (l *Logger) log(level LogLevel, category, message string) {
	_, file, line, ok := runtime.Caller(2)
	if ok {
		file = filepath.Base(file)
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Level:     levelString(level),
		Category:  strings.ToUpper(category),
		Message:   message,
		File:      file,
		Line:      line,
	}

	fmt.Printf("%s %s %-14s %s\n",
		entry.Timestamp,
		levelColor(level)(fmt.Sprintf("%-5s", entry.Level)),
		"["+entry.Category+"]",
		entry.Message,
	)

	if l.fileLogger != nil {
		if jsonLine, err := json.Marshal(entry); err == nil {
			l.fileLogger.Println(string(jsonLine))
		}
	}

	if level == FATAL {
		l.Close()
		os.Exit(1)
	}
}

func (l *Logger) Debug(category, message string) { l.log(DEBUG, category, message) }
func (l *Logger) Info(category, message string)  { l.log(INFO, category, message) }
func (l *Logger) Warn(category, message string)  { l.log(WARN, category, message) }
func (l *Logger) Error(category, message string) { l.log(ERROR, category, message) }
func (l *Logger) Fatal(category, message string) { l.log(FATAL, category, message) }

func (l *Logger) Close() {
	if l.logFile != nil {
		l.logFile.Close()
	}
}

func levelString(level LogLevel) string {
	switch level {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	}
	return "UNKNOWN"
}

func levelColor(level LogLevel) func(format string, a ...interface{}) string {
	switch level {
	case DEBUG:
		return color.HiBlackString
	case INFO:
		return color.GreenString
	case WARN:
		return color.YellowString
	case ERROR, FATAL:
		return color.RedString
	}
	return fmt.Sprintf
}
