package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/cli"
)

const appName = "callbridge"

// logLines is how many recent log lines /debug/logs keeps.
const logLines = 1000

var (
	// Global flags
	cfgFile     string
	contextName string
	outputFile  string
	inputFile   string
	outputJSON  bool
	verbose     bool

	// Global configuration
	globalConfig *cli.Config

	// recentLogs mirrors everything written to the default logger.
	recentLogs = cli.NewLogWriter(logLines)
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Bridge phone calls to realtime speech AI",
	Long: `callbridge - answers telephony media streams with a realtime speech AI.

Each inbound call is matched to a tenant, connected to the tenant's realtime
provider (OpenAI or Gemini) and bridged in both directions, with local voice
activity detection and barge-in handling.

Configuration is stored in ~/.callbridge/ and supports multiple contexts,
similar to kubectl's context management.

Examples:
  # Set up a new context
  callbridge config add-context prod --openai-key KEY --tenant-file tenants.yaml

  # Answer calls
  callbridge -c prod serve

  # Inspect how VAD cuts a recording
  callbridge replay -f replay.yaml --json | jq '.utterances'
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "", "", "config file (default is ~/.callbridge/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name to use")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	rootCmd.PersistentFlags().StringVarP(&inputFile, "file", "f", "", "input request file (YAML or JSON)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(toneCmd)
}

func initConfig() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(io.MultiWriter(os.Stderr, recentLogs), &slog.HandlerOptions{
		Level: level,
	})))

	var err error
	globalConfig, err = cli.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
}

// getConfig returns the global configuration
func getConfig() *cli.Config {
	return globalConfig
}

// getContext returns the context configuration to use
func getContext() (*cli.Context, error) {
	cfg := getConfig()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}

	ctx, err := cfg.ResolveContext(contextName)
	if err != nil {
		if errors.Is(err, cli.ErrNoContext) {
			return nil, fmt.Errorf("no context specified. Use -c flag or set a default context with '%s config use-context'", appName)
		}
		return nil, err
	}
	return ctx, nil
}

// outputResult outputs the result using cli package
func outputResult(result any, outputPath string, asJSON bool) error {
	format := cli.FormatYAML
	if asJSON {
		format = cli.FormatJSON
	}
	return cli.Output(result, cli.OutputOptions{
		Format: format,
		File:   outputPath,
	})
}
