package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ciris-ai/ciris-go/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage CLI configuration and contexts.

Contexts allow you to manage multiple CIRIS servers,
similar to kubectl's context management.

Configuration is stored in ~/.ciris/config.yaml`,
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Add a new context",
	Long: `Add a new context with the specified name.

Example:
  ciris config add-context local --base-url http://localhost:8080
  ciris config add-context prod --base-url https://agents.ciris.ai --api-key KEY`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		baseURL, err := cmd.Flags().GetString("base-url")
		if err != nil {
			return fmt.Errorf("failed to read 'base-url' flag: %w", err)
		}
		if baseURL == "" {
			return fmt.Errorf("--base-url is required")
		}

		apiKey, err := cmd.Flags().GetString("api-key")
		if err != nil {
			return fmt.Errorf("failed to read 'api-key' flag: %w", err)
		}
		timeout, err := cmd.Flags().GetInt("timeout")
		if err != nil {
			return fmt.Errorf("failed to read 'timeout' flag: %w", err)
		}
		maxRetries, err := cmd.Flags().GetInt("max-retries")
		if err != nil {
			return fmt.Errorf("failed to read 'max-retries' flag: %w", err)
		}
		channels, err := cmd.Flags().GetStringSlice("channel")
		if err != nil {
			return fmt.Errorf("failed to read 'channel' flag: %w", err)
		}

		ctx := &cli.Context{
			BaseURL:    baseURL,
			APIKey:     apiKey,
			Timeout:    timeout,
			MaxRetries: maxRetries,
			Channels:   channels,
		}

		if err := globalConfig.AddContext(name, ctx); err != nil {
			return err
		}

		cli.PrintSuccess("Context %q added successfully", name)
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := globalConfig.DeleteContext(name); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q deleted", name)
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := globalConfig.UseContext(name); err != nil {
			return err
		}
		cli.PrintSuccess("Switched to context %q", name)
		return nil
	},
}

var configListContextsCmd = &cobra.Command{
	Use:   "list-contexts",
	Short: "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		names := globalConfig.ListContexts()
		if len(names) == 0 {
			cli.PrintInfo("No contexts configured. Add one with 'ciris config add-context'")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tBASE URL\tAPI KEY")
		for _, name := range names {
			ctx, err := globalConfig.GetContext(name)
			if err != nil {
				continue
			}
			marker := ""
			if name == globalConfig.CurrentContext {
				marker = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, name, ctx.BaseURL, cli.MaskAPIKey(ctx.APIKey))
		}
		return w.Flush()
	},
}

var configCurrentContextCmd = &cobra.Command{
	Use:   "current-context",
	Short: "Show the current context",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := globalConfig.GetCurrentContext()
		if err != nil {
			return err
		}
		return output(ctx)
	},
}

func init() {
	configAddContextCmd.Flags().String("base-url", "", "agent API base URL (required)")
	configAddContextCmd.Flags().String("api-key", "", "API key for authentication")
	configAddContextCmd.Flags().Int("timeout", 0, "request timeout in seconds")
	configAddContextCmd.Flags().Int("max-retries", 0, "maximum retries for failed requests")
	configAddContextCmd.Flags().StringSlice("channel", nil, "default stream channels")

	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configCurrentContextCmd)
}
