package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

const (
	maxLogFileSizeKB = 10 * 1024
	maxLogFiles      = 3
)

// logWriter implements an io.Writer that outputs to both standard output and
// the write-end pipe of an initialized log rotator.
type logWriter struct {
	rotatorPipe *io.PipeWriter
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	_, _ = os.Stdout.Write(p)
	if w.rotatorPipe != nil {
		_, _ = w.rotatorPipe.Write(p)
	}
	return len(p), nil
}

// Loggers per subsystem. A single backend logger is created and all subsystem
// loggers created from it will write to the backend. Until InitLogRotator is
// called they only write to standard output.
var (
	writer = &logWriter{}

	backendLog = btclog.NewBackend(writer)

	// LogRotator is one of the logging outputs. It should be closed on
	// application shutdown.
	LogRotator *rotator.Rotator

	Srv  = backendLog.Logger("SRV")
	Idx  = backendLog.Logger("IDX")
	Rpc  = backendLog.Logger("RPC")
	Gorm = backendLog.Logger("GORM")
	Api  = backendLog.Logger("API")
)

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]btclog.Logger{
	"SRV":  Srv,
	"IDX":  Idx,
	"RPC":  Rpc,
	"GORM": Gorm,
	"API":  Api,
}

func init() {
	SetLogLevels(btclog.LevelInfo.String())
	Gorm.SetLevel(btclog.LevelWarn)
}

// InitLogRotator initializes the logging rotator to write logs to logFile and
// create roll files in the same directory.
func InitLogRotator(logFile string) error {
	logDir, _ := filepath.Split(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	r, err := rotator.New(logFile, maxLogFileSizeKB, false, maxLogFiles)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}

	pr, pw := io.Pipe()
	go func() {
		_ = r.Run(pr)
	}()

	writer.rotatorPipe = pw
	LogRotator = r
	return nil
}

// Close flushes and closes the rotator, if any.
func Close() {
	if writer.rotatorPipe != nil {
		_ = writer.rotatorPipe.Close()
	}
	if LogRotator != nil {
		_ = LogRotator.Close()
	}
}

// SetLogLevel sets the logging level for provided subsystem. Invalid
// subsystems are ignored.
func SetLogLevel(subsystemID string, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}
	// Defaults to info if the log level is invalid.
	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// SetLogLevels sets the log level for all subsystem loggers to the passed level.
func SetLogLevels(logLevel string) {
	for subsystemID := range subsystemLoggers {
		SetLogLevel(subsystemID, logLevel)
	}
}

// SupportedSubsystems returns the registered subsystem identifiers.
func SupportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for id := range subsystemLoggers {
		subsystems = append(subsystems, id)
	}
	return subsystems
}
