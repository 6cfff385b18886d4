package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jessicaagarwal/Shoonya-wipe/internal/config"
)

// AuditLogger is a leveled logger that appends to the audit log file and
// mirrors important entries to stdout. Safety-gate refusals and executor
// faults must always pass through here so they are never silently dropped.
type AuditLogger struct {
	level   string
	file    *os.File
	verbose bool
}

func NewAuditLogger(cfg *config.Config, verbose bool) (*AuditLogger, error) {
	l := &AuditLogger{
		level:   cfg.Logging.Level,
		verbose: verbose,
	}

	if cfg.Logging.File != "" {
		logDir := filepath.Dir(cfg.Logging.File)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			fmt.Printf("[WARN] cannot create log directory %s: %v, logging to stdout\n", logDir, err)
			return l, nil
		}
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Printf("[WARN] cannot open log file %s: %v, logging to stdout\n", cfg.Logging.File, err)
			return l, nil
		}
		l.file = f
	}

	return l, nil
}

func (l *AuditLogger) Log(level, message string, fields ...interface{}) {
	if !l.shouldLog(level) {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	entry := fmt.Sprintf("[%s] [%s] %s", timestamp, level, message)
	if len(fields) > 0 {
		entry += fmt.Sprintf(" %v", fields)
	}

	if l.file != nil {
		l.file.WriteString(entry + "\n")
		l.file.Sync()
	}

	if l.verbose || level == "ERROR" || level == "FATAL" {
		fmt.Println(entry)
	}
}

func (l *AuditLogger) shouldLog(level string) bool {
	levels := map[string]int{"DEBUG": 0, "INFO": 1, "WARN": 2, "ERROR": 3, "FATAL": 4}
	return levels[level] >= levels[l.level]
}

func (l *AuditLogger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
