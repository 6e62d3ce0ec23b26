package helpers

import (
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/calsym/calsym/internal/logging"
)

// LogFlags holds the logging flag values shared by all commands.
type LogFlags struct {
	Level  string
	Pretty bool
}

// AddFlags adds the logging flags to a FlagSet.
func (f *LogFlags) AddFlags(flags *pflag.FlagSet) {
	defaults := logging.DefaultConfig()
	flags.StringVar(&f.Level, "log-level", defaults.Level, "log level (trace, debug, info, warn, error)")
	flags.BoolVar(&f.Pretty, "pretty", defaults.Pretty, "human-readable log output")
}

// Logger builds the logger described by the flag values.
func (f *LogFlags) Logger() zerolog.Logger {
	return logging.New(logging.Config{Level: f.Level, Pretty: f.Pretty})
}
