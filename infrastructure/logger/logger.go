package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
)

var logger = log.New()

func init() {
	cwd, err := os.Getwd()
	if err != nil {
		log.Info("Failed get current working directory")
		log.Fatal(err)
	}
	env := os.Getenv("ENV")
	logger.Out = os.Stdout

	// LOG_TO_FILE=true writes to logs/<date><env>.log for stage and prod.
	logToFile := os.Getenv("LOG_TO_FILE") == "true"
	if logToFile && (env == "stage" || env == "prod" || env == "") {
		logsDir := filepath.Join(cwd, "logs")
		if mkErr := os.MkdirAll(logsDir, 0o755); mkErr != nil {
			log.Warnf("Failed to create logs directory %s: %v, falling back to stdout", logsDir, mkErr)
		} else {
			filePath := filepath.Join(logsDir, fmt.Sprintf("%s%s.log", time.Now().Format("2006-01-02"), env))
			f, openErr := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
			if openErr != nil {
				log.Warnf("Failed to open log file %s: %v, falling back to stdout", filePath, openErr)
			} else {
				logger.Out = f
			}
		}
	}

	logger.Formatter = &log.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
	}
	logger.SetLevel(levelFromEnv(os.Getenv("LOG_LEVEL")))
}

func levelFromEnv(raw string) log.Level {
	if raw == "" {
		return log.DebugLevel
	}
	lvl, err := log.ParseLevel(raw)
	if err != nil {
		return log.DebugLevel
	}
	return lvl
}

// GetLogger returns an entry annotated with the caller's function, file and line.
func GetLogger() *log.Entry {
	function, file, line, _ := runtime.Caller(1)

	functionObject := runtime.FuncForPC(function)
	entry := logger.WithFields(log.Fields{
		"service":  "story-syndication",
		"function": functionObject.Name(),
		"file":     file,
		"line":     line,
	})

	return entry
}
