package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ciris-ai/ciris-go/pkg/ciris"
	"github.com/ciris-ai/ciris-go/pkg/ciris/authstore"
	"github.com/ciris-ai/ciris-go/pkg/ciris/ratelimit"
	"github.com/ciris-ai/ciris-go/pkg/cli"
)

var (
	// Global flags
	cfgFile     string
	contextName string
	outputFile  string
	outputJSON  bool
	verbose     bool

	// Global configuration
	globalConfig *cli.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ciris",
	Short: "CIRIS agent CLI tool",
	Long: `ciris - A command line interface for CIRIS agents.

This tool allows you to interact with a CIRIS agent:
  - Send messages and read responses (interact)
  - Follow the real-time event stream (stream)
  - Inspect agent status and system health (status)
  - Manage authentication and server contexts (login, config)

Configuration is stored in ~/.ciris/ and supports multiple contexts,
similar to kubectl's context management.

Examples:
  # Set up a new context
  ciris config add-context local --base-url http://localhost:8080 --api-key KEY

  # Talk to the agent
  ciris interact "Hello, CIRIS!"

  # Follow telemetry and error logs, filtering with jq syntax
  ciris stream --channel telemetry --channel logs --level ERROR --jq '.data.cpu'
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

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.ciris/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name to use")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(interactCmd)
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	var err error
	globalConfig, err = cli.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
}

// getContext returns the context configuration to use
func getContext() (*cli.Context, error) {
	if globalConfig == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}

	ctx, err := globalConfig.ResolveContext(contextName)
	if err != nil {
		if contextName == "" {
			return nil, fmt.Errorf("no context specified. Use -c flag or set a default context with 'ciris config use-context'")
		}
		return nil, err
	}
	return ctx, nil
}

// cliLogger returns the logger for client internals: quiet by default,
// debug-level text on stderr with -v.
func cliLogger() *slog.Logger {
	if verbose {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.DiscardHandler)
}

// newClient builds an API client from the active context. Credentials come
// from the context's api_key or, failing that, the auth store.
func newClient() (*ciris.Client, error) {
	ctx, err := getContext()
	if err != nil {
		return nil, err
	}

	store, err := authstore.Open(filepath.Join(globalConfig.Dir(), "auth"))
	if err != nil {
		return nil, err
	}

	opts := []ciris.Option{
		ciris.WithLogger(cliLogger()),
		ciris.WithAuthStore(store),
		ciris.WithRateLimiter(ratelimit.NewAdaptive(0, 0, cliLogger())),
	}
	if ctx.APIKey != "" {
		opts = append(opts, ciris.WithAPIKey(ctx.APIKey))
	}
	if ctx.Timeout > 0 {
		opts = append(opts, ciris.WithTimeout(time.Duration(ctx.Timeout)*time.Second))
	}
	if ctx.MaxRetries > 0 {
		opts = append(opts, ciris.WithMaxRetries(ctx.MaxRetries))
	}

	return ciris.NewClient(ctx.BaseURL, opts...), nil
}

// output writes a result honoring the global --json and --output flags.
func output(result any) error {
	format := cli.FormatYAML
	if outputJSON {
		format = cli.FormatJSON
	}
	return cli.Output(result, cli.OutputOptions{Format: format, File: outputFile})
}
