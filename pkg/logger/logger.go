package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// logFileCount is how many files the log size budget is spread over.
const logFileCount = 10

var (
	log        zerolog.Logger
	fileWriter *lumberjack.Logger
)

// Init initializes the global logger with the specified level.
// level can be: "debug", "info", "warn", "error", "fatal"
// In development mode (debug level), output is human-friendly console format.
func Init(level string) {
	log = newLogger(parseLevel(level), consoleWriter(parseLevel(level)))
}

// InitFile logs to stdout and to a rotating file at path. The maxSizeMB budget
// is spread over 10 files: the active one plus 9 rotated backups.
func InitFile(level, path string, maxSizeMB int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	size, backups := rotation(maxSizeMB)
	Close()
	fileWriter = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    size,
		MaxBackups: backups,
	}

	lvl := parseLevel(level)
	log = newLogger(lvl, zerolog.MultiLevelWriter(consoleWriter(lvl), fileWriter))
	return nil
}

// rotation returns the per-file size in MB and the number of backups kept.
// A non-positive budget leaves lumberjack's default size in place.
func rotation(maxSizeMB int) (int, int) {
	if maxSizeMB <= 0 {
		return 0, logFileCount - 1
	}
	size := maxSizeMB / logFileCount
	if size < 1 {
		size = 1
	}
	return size, logFileCount - 1
}

// Close releases the log file, if any.
func Close() error {
	if fileWriter == nil {
		return nil
	}
	err := fileWriter.Close()
	fileWriter = nil
	return err
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func consoleWriter(lvl zerolog.Level) io.Writer {
	if lvl == zerolog.DebugLevel {
		return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}
	return os.Stdout
}

func newLogger(lvl zerolog.Level, w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Caller().
		Logger()
}

func init() {
	// Default logger before Init() is called
	Init("info")
}

// --- Convenience functions ---

func Debug() *zerolog.Event { return log.Debug() }
func Info() *zerolog.Event  { return log.Info() }
func Warn() *zerolog.Event  { return log.Warn() }
func Error() *zerolog.Event { return log.Error() }
func Fatal() *zerolog.Event { return log.Fatal() }

// Infof provides printf-style logging at info level.
func Infof(format string, v ...interface{}) {
	log.Info().Msgf(format, v...)
}

// Errorf provides printf-style logging at error level.
func Errorf(format string, v ...interface{}) {
	log.Error().Msgf(format, v...)
}

// Warnf provides printf-style logging at warn level.
func Warnf(format string, v ...interface{}) {
	log.Warn().Msgf(format, v...)
}

// Fatalf provides printf-style logging at fatal level (calls os.Exit).
func Fatalf(format string, v ...interface{}) {
	log.Fatal().Msgf(format, v...)
}

// Get returns the underlying zerolog.Logger for advanced usage.
func Get() zerolog.Logger {
	return log
}
