package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"

	"github.com/ciris-ai/ciris-go/pkg/ciris/stream"
	"github.com/ciris-ai/ciris-go/pkg/cli"
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Follow the agent's real-time event stream",
	Long: `Connect to the agent's websocket event stream and print messages as
they arrive. The connection self-heals: on transport loss it reconnects with
exponential backoff and replays all subscriptions.

Channels default to the active context's configured channels. Filters apply
to every requested channel.

Example:
  ciris stream --channel telemetry --channel logs --level ERROR
  ciris stream --channel telemetry --service memory --jq '.data.cpu_percent'
  ciris stream --channel messages --json | jq '.data'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		channels, err := cmd.Flags().GetStringSlice("channel")
		if err != nil {
			return fmt.Errorf("failed to read 'channel' flag: %w", err)
		}
		levelFilter, _ := cmd.Flags().GetString("level")
		serviceFilter, _ := cmd.Flags().GetString("service")
		authorFilter, _ := cmd.Flags().GetString("author")
		taskFilter, _ := cmd.Flags().GetString("task-id")
		minDepth, _ := cmd.Flags().GetInt("min-depth")
		services, _ := cmd.Flags().GetStringSlice("filter-service")
		metrics, _ := cmd.Flags().GetStringSlice("metric")
		jqExpr, _ := cmd.Flags().GetString("jq")
		queueSize, _ := cmd.Flags().GetInt("queue-size")
		dropNewest, _ := cmd.Flags().GetBool("drop-newest")

		cliCtx, err := getContext()
		if err != nil {
			return err
		}
		if len(channels) == 0 {
			channels = cliCtx.Channels
		}
		if len(channels) == 0 {
			return fmt.Errorf("no channels requested. Use --channel or configure defaults on the context")
		}

		var jqQuery *gojq.Query
		if jqExpr != "" {
			jqQuery, err = gojq.Parse(jqExpr)
			if err != nil {
				return fmt.Errorf("invalid jq expression: %w", err)
			}
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		streamOpts := []stream.Option{}
		if queueSize > 0 {
			streamOpts = append(streamOpts, stream.WithQueueCapacity(queueSize))
		}
		if dropNewest {
			streamOpts = append(streamOpts, stream.WithDropPolicy(stream.DropNewest))
		}
		s, err := client.Stream(streamOpts...)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := s.Connect(ctx); err != nil {
			return err
		}

		filter := stream.ChannelFilter{
			Services: services,
			Metrics:  metrics,
			Level:    levelFilter,
			Service:  serviceFilter,
			Author:   authorFilter,
			TaskID:   taskFilter,
			MinDepth: minDepth,
		}
		subs := make(map[string]stream.ChannelFilter, len(channels))
		for _, ch := range channels {
			subs[ch] = filter
		}
		if err := s.Subscribe(subs); err != nil {
			return err
		}

		styles := cli.NewStyles(cli.DefaultTheme)
		if !outputJSON {
			fmt.Println(styles.Meta.Render(fmt.Sprintf("streaming %d channel(s), ctrl-c to stop", len(channels))))
		}

		for msg, err := range s.Messages(ctx) {
			if err != nil {
				if errors.Is(err, context.Canceled) {
					break
				}
				return err
			}
			if err := printMessage(msg, jqQuery, styles); err != nil {
				return err
			}
		}

		st := s.Stats()
		fmt.Fprintln(os.Stderr, styles.Meta.Render(fmt.Sprintf(
			"stream closed: reconnects=%d gaps=%d dropped=%d", st.Reconnects, st.Gaps, st.Dropped)))
		return nil
	},
}

// printMessage renders one stream message, optionally projected through a jq
// expression. A jq run that yields nothing suppresses the message.
func printMessage(msg *stream.Message, jqQuery *gojq.Query, styles cli.Styles) error {
	if jqQuery != nil {
		return printJQ(msg, jqQuery)
	}

	if outputJSON {
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	payload, err := json.Marshal(msg.Data)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s %s %s\n",
		styles.Meta.Render(msg.Timestamp.Format("15:04:05")),
		styles.Channel.Render(msg.Channel),
		styles.Meta.Render(msg.EventType),
		string(payload))
	return nil
}

func printJQ(msg *stream.Message, query *gojq.Query) error {
	doc := map[string]any{
		"channel":    msg.Channel,
		"event_type": msg.EventType,
		"timestamp":  msg.Timestamp.Format(time.RFC3339),
		"data":       msg.Data,
		"sequence":   int(msg.Sequence),
	}

	iter := query.Run(doc)
	for {
		v, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, isErr := v.(error); isErr {
			return fmt.Errorf("jq: %w", err)
		}
		out, err := gojq.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	}
}

func init() {
	streamCmd.Flags().StringSlice("channel", nil, "channel to subscribe to (repeatable)")
	streamCmd.Flags().String("level", "", "minimum log level filter (logs channel)")
	streamCmd.Flags().String("service", "", "filter events to one service")
	streamCmd.Flags().String("author", "", "filter messages by author")
	streamCmd.Flags().String("task-id", "", "filter reasoning events by task")
	streamCmd.Flags().Int("min-depth", 0, "minimum reasoning depth filter")
	streamCmd.Flags().StringSlice("filter-service", nil, "restrict to named services (repeatable)")
	streamCmd.Flags().StringSlice("metric", nil, "restrict telemetry to named metrics (repeatable)")
	streamCmd.Flags().String("jq", "", "project each message through a jq expression")
	streamCmd.Flags().Int("queue-size", 0, "delivery queue capacity (default 1000)")
	streamCmd.Flags().Bool("drop-newest", false, "on overflow drop incoming instead of oldest")
}
