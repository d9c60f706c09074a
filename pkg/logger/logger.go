package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Leveled process-wide logger used by the server and its handlers.
// Lines are either "RFC3339 [LEVEL] msg" or one JSON object per line.

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
	LevelFatal: "fatal",
}

var (
	mu         sync.RWMutex
	logger     *log.Logger = log.New(os.Stdout, "", 0)
	level      Level       = LevelInfo
	jsonOutput bool
)

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		level = LevelDebug
	case "warn", "warning":
		level = LevelWarn
	case "error":
		level = LevelError
	case "fatal":
		level = LevelFatal
	default:
		level = LevelInfo
	}
}

// SetFormat switches between "text" (default) and "json" lines.
func SetFormat(f string) {
	mu.Lock()
	defer mu.Unlock()
	jsonOutput = strings.EqualFold(strings.TrimSpace(f), "json")
}

// SetOutput redirects log output; it returns the previous writer's logger so tests can restore it.
func SetOutput(w io.Writer) *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	prev := logger
	logger = log.New(w, "", 0)
	return prev
}

// Restore puts back a logger returned by SetOutput.
func Restore(l *log.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

type entry struct {
	Level string `json:"level"`
	Time  string `json:"time"`
	Msg   string `json:"msg"`
}

func emit(l Level, msg string) {
	mu.RLock()
	out, asJSON := logger, jsonOutput
	mu.RUnlock()
	now := time.Now().Format(time.RFC3339)
	if asJSON {
		b, err := json.Marshal(entry{Level: levelNames[l], Time: now, Msg: msg})
		if err == nil {
			out.Print(string(b))
			return
		}
	}
	out.Printf("%s [%s] %s", now, strings.ToUpper(levelNames[l]), msg)
}

func shouldLog(l Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return l >= level
}

func logf(l Level, format string, v ...interface{}) {
	if !shouldLog(l) {
		return
	}
	emit(l, fmt.Sprintf(format, v...))
}

func Debugf(format string, v ...interface{}) { logf(LevelDebug, format, v...) }
func Infof(format string, v ...interface{})  { logf(LevelInfo, format, v...) }
func Warnf(format string, v ...interface{})  { logf(LevelWarn, format, v...) }
func Errorf(format string, v ...interface{}) { logf(LevelError, format, v...) }

func Fatalf(format string, v ...interface{}) {
	emit(LevelFatal, fmt.Sprintf(format, v...))
	os.Exit(1)
}

// Println kept for brief messages (maps to Info)
func Println(v ...interface{}) {
	if !shouldLog(LevelInfo) {
		return
	}
	emit(LevelInfo, strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Debug/Info/Warn/Error helpers that accept a single string
func Debug(v string) { Debugf("%s", v) }
func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// LevelString returns the current level as text.
func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	if s, ok := levelNames[level]; ok {
		return s
	}
	return "info"
}
