package config

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

const defaultLogFile = "logs/formdrop-api.log"

// LogWriter receives application, request and SQL logs.
var LogWriter io.Writer = os.Stdout

// LogFilePath returns LOG_FILE, the service log default, or "" when LOG_FILE
// is "off" and logs go to stdout only.
func LogFilePath() string {
	path := strings.TrimSpace(os.Getenv("LOG_FILE"))
	switch strings.ToLower(path) {
	case "":
		return filepath.FromSlash(defaultLogFile)
	case "off", "-":
		return ""
	}
	return path
}

// InitLogging points the standard logger at stdout plus the log file. The
// caller closes the returned file; it is nil when only stdout is used.
func InitLogging() (*os.File, io.Writer) {
	LogWriter = os.Stdout
	defer func() { log.SetOutput(LogWriter) }()

	path := LogFilePath()
	if path == "" {
		return nil, LogWriter
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("Warning: Failed to create log directory %s: %v", filepath.Dir(path), err)
		return nil, LogWriter
	}
	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("Warning: Failed to open log file %s: %v", path, err)
		return nil, LogWriter
	}

	LogWriter = io.MultiWriter(os.Stdout, logFile)
	return logFile, LogWriter
}
