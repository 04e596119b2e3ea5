package commands

import (
	"context"
	"io"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/judgelight/judgelight/internal/logging"
)

const (
	// LoggerFormatConsole is the human readable log format.
	LoggerFormatConsole = "console"
	// LoggerFormatJSON is the json log format.
	LoggerFormatJSON = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	LogLevel  string
	LogFormat string
	LogOutput string

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *zap.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("log-level", "Log level (debug, info, warn, error).").Default("warn").EnumVar(&c.LogLevel, "debug", "info", "warn", "error")
	app.Flag("log-format", "Log format.").Default(LoggerFormatConsole).EnumVar(&c.LogFormat, LoggerFormatConsole, LoggerFormatJSON)
	app.Flag("log-output", "Log file, stderr when empty.").StringVar(&c.LogOutput)

	return c
}

// NewLogger builds the logger from the global flags. Logs go to stderr
// unless a log file is set.
func (c *RootCommand) NewLogger() (*zap.Logger, error) {
	cfg := logging.Config{
		Level:  c.LogLevel,
		Format: c.LogFormat,
		Output: c.LogOutput,
	}
	if c.LogOutput == "" {
		cfg.Writer = c.Stderr
	}
	return logging.New(cfg)
}
