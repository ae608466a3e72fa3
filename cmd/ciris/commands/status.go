package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ciris-ai/ciris-go/pkg/cli"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agent status and system health",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx := context.Background()
		status, err := client.Agent.Status(ctx)
		if err != nil {
			return err
		}
		health, err := client.System.Health(ctx)
		if err != nil {
			return err
		}

		if outputJSON || outputFile != "" {
			return output(map[string]any{"agent": status, "health": health})
		}

		styles := cli.NewStyles(cli.DefaultTheme)
		fmt.Printf("%s  %s\n", styles.Title.Render(status.Name), styles.StateBadge(health.Status))
		fmt.Printf("%s %s\n", styles.Label.Render("Agent ID:"), status.AgentID)
		fmt.Printf("%s %s\n", styles.Label.Render("Cognitive state:"), styles.StateBadge(status.CognitiveState))
		fmt.Printf("%s %s\n", styles.Label.Render("Uptime:"), cli.FormatUptime(status.UptimeSeconds))
		fmt.Printf("%s %d\n", styles.Label.Render("Messages processed:"), status.MessagesProcessed)
		fmt.Printf("%s %d\n", styles.Label.Render("Active services:"), status.ServicesActive)
		fmt.Printf("%s %s\n", styles.Label.Render("Memory:"), cli.FormatMB(status.MemoryUsageMB))
		if status.CurrentTask != "" {
			fmt.Printf("%s %s\n", styles.Label.Render("Current task:"), status.CurrentTask)
		}
		return nil
	},
}
