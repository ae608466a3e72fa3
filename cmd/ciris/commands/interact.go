package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ciris-ai/ciris-go/pkg/ciris"
	"github.com/ciris-ai/ciris-go/pkg/cli"
)

var interactCmd = &cobra.Command{
	Use:   "interact [message]",
	Short: "Send a message to the agent and print the response",
	Long: `Send a message to the agent and wait for its response.

The message can be given as an argument, or loaded together with its
context from a YAML or JSON request file. A message argument overrides
the file's message.

Example:
  ciris interact "Hello, CIRIS!"
  ciris interact --file request.yaml
  cat request.yaml | ciris interact --file -
  ciris interact "Summarize today's telemetry" --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := cmd.Flags().GetString("file")
		if err != nil {
			return fmt.Errorf("failed to read 'file' flag: %w", err)
		}

		var req ciris.InteractRequest
		switch {
		case file == "-":
			if err := cli.LoadRequestFromStdin(&req); err != nil {
				return err
			}
		case file != "":
			if err := cli.LoadRequest(file, &req); err != nil {
				return err
			}
		}
		if len(args) > 0 {
			req.Message = args[0]
		}
		if req.Message == "" {
			return fmt.Errorf("a message argument or --file is required")
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		resp, err := client.Agent.Interact(context.Background(), req.Message, req.Context)
		if err != nil {
			return err
		}

		if outputJSON || outputFile != "" {
			return output(resp)
		}

		styles := cli.NewStyles(cli.DefaultTheme)
		fmt.Println(resp.Response)
		fmt.Println(styles.Meta.Render(fmt.Sprintf("state=%s took=%s",
			resp.State, cli.FormatDuration(int(resp.ProcessingTimeMS)))))
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent conversation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return fmt.Errorf("failed to read 'limit' flag: %w", err)
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		hist, err := client.Agent.History(context.Background(), limit)
		if err != nil {
			return err
		}

		if outputJSON || outputFile != "" {
			return output(hist)
		}

		styles := cli.NewStyles(cli.DefaultTheme)
		for _, m := range hist.Messages {
			author := m.Author
			if m.IsAgent {
				author = styles.Label.Render(author)
			}
			fmt.Printf("%s %s: %s\n",
				styles.Meta.Render(m.Timestamp.Format("15:04:05")), author, m.Content)
		}
		return nil
	},
}

func init() {
	interactCmd.Flags().String("file", "", "load message and context from a YAML or JSON request file (- for stdin)")

	historyCmd.Flags().Int("limit", 20, "maximum messages to show")
	rootCmd.AddCommand(historyCmd)
}
