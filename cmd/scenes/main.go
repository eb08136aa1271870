package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scenes-dev/scenes/internal/config"
	"github.com/scenes-dev/scenes/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Output streams; replaced in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Global flags.
var (
	projectDir string
	logLevel   string
	noColor    bool
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the CLI and returns the process exit code.
func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Validation failures have already been reported finding by finding.
		if !errors.HasCode(err, "S011") {
			errors.FprintError(stderr, err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "scenes",
		Short: "Build and validate the scenes component registry",
		Long: `Scenes builds a shadcn-compatible registry from a hand-maintained
scene manifest and validates that every scene's declared metadata
matches what its source actually imports.

  • Validate the whole registry or a single scene
  • Generate registry items and the index
  • Serve the registry locally with rebuild on change
  • Publish generated artifacts to S3`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				errors.DisableColors()
			}
			return setupLogging(logLevel)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", "", "Project directory (default: nearest directory with scenes.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default warn, or SCENES_LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		initCmd(),
		validateCmd(),
		validateSceneCmd(),
		generateCmd(),
		buildCmd(),
		listCmd(),
		devCmd(),
		publishCmd(),
		versionCmd(),
	)
	return rootCmd
}

// setupLogging installs the default slog logger on stderr.
func setupLogging(level string) error {
	if level == "" {
		level = os.Getenv(config.EnvPrefix + "_LOG_LEVEL")
	}
	var l slog.Level
	switch strings.ToLower(level) {
	case "", "warn", "warning":
		l = slog.LevelWarn
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "error":
		l = slog.LevelError
	default:
		return errors.New("S022").WithDetailf("unknown log level %q", level)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: l})))
	return nil
}

// loadConfig loads the project configuration from --dir or the working
// directory.
func loadConfig() (*config.Config, error) {
	if projectDir != "" {
		return config.Load(projectDir)
	}
	return config.LoadFromWorkingDir()
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Fprintf(stdout, "%s %s\n", errors.Green("✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Fprintf(stdout, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Fprintf(stdout, "%s %s\n", errors.Yellow("⚠"), fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(stderr, "%s %s\n", errors.Red("✗"), fmt.Sprintf(format, args...))
}
