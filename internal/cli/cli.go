package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/datamixer/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("datamixer", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
DataMixer - Runs a processing model over a stream of acquisition bundles.

Usage:
  datamixer [options] BUNDLE_PATH

Arguments:
  BUNDLE_PATH
    Path to a YAML stream of bundles, one document per bundle, or a directory
    of such files read in lexical order. Use "-" to read standard input.
    Result bundles are written to standard output.

Models:
  equation, fit, harmonics

Options:
`)
		flagSet.PrintDefaults()
	}

	modelFlag := flagSet.String("model", "", "Model to run. Defaults to the settings file, then 'equation'.")
	mFlag := flagSet.String("m", "", "Model to run (shorthand).")
	settingsFlag := flagSet.String("settings", "", "Path to an HCL settings file.")
	formulaFlag := flagSet.String("formula", "", "Formulae for the equation model, one per line.")
	watchFlag := flagSet.Bool("watch", false, "Reload the settings file when it changes.")
	dumpFlag := flagSet.Bool("dump-settings", false, "Print the resolved settings of the model as HCL and exit.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	timeoutFlag := flagSet.Duration("process-timeout", 0, "Upper bound for processing one bundle, e.g. '2s'. 0 is unbounded.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := flagSet.Arg(0)
	if path == "" && *dumpFlag {
		path = app.StdinPath
	}
	if path == "" {
		slog.Debug("No bundle path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}
	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("expected one BUNDLE_PATH, got %d arguments", flagSet.NArg())}
	}

	model := *modelFlag
	if model == "" {
		model = *mFlag
	}

	config, err := app.NewConfig(app.Config{
		BundlePath:      path,
		Model:           model,
		SettingsPath:    *settingsFlag,
		Formula:         *formulaFlag,
		Watch:           *watchFlag,
		DumpSettings:    *dumpFlag,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       strings.ToLower(*logFormatFlag),
		LogLevel:        strings.ToLower(*logLevelFlag),
		ProcessTimeout:  *timeoutFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
