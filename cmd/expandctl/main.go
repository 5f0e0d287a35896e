// expandctl is the control CLI for the expandd daemon.
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"expandd/internal/config"
	"expandd/internal/ipc"
)

func main() {
	cmd := &cli.Command{
		Name:  "expandctl",
		Usage: "Control the expandd daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "socket",
				Aliases: []string{"s"},
				Usage:   "Path to the daemon control socket",
				Sources: cli.EnvVars("EXPANDD_SOCKET_PATH"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show daemon status",
				Action: withClient(cmdStatus),
			},
			{
				Name:   "enable",
				Usage:  "Enable expansion",
				Action: withClient(cmdEnable),
			},
			{
				Name:   "disable",
				Usage:  "Disable expansion (snippets stay loaded)",
				Action: withClient(cmdDisable),
			},
			{
				Name:   "reload",
				Usage:  "Force a configuration reload",
				Action: withClient(cmdReload),
			},
			{
				Name:   "snippets",
				Usage:  "List loaded snippets",
				Action: withClient(cmdSnippets),
			},
			{
				Name:  "history",
				Usage: "Show recent expansions",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "Maximum entries to show"},
					&cli.StringFlag{Name: "trigger", Aliases: []string{"t"}, Usage: "Filter by trigger text"},
				},
				Action: withClient(cmdHistory),
			},
			{
				Name:   "stop",
				Usage:  "Ask the daemon to shut down",
				Action: withClient(cmdStop),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "expandctl: %v\n", err)
		os.Exit(1)
	}
}

type clientAction func(ctx context.Context, cmd *cli.Command, client *ipc.Client) error

// withClient connects to the daemon socket before running the action.
func withClient(action clientAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		socketPath := cmd.String("socket")
		if socketPath == "" {
			socketPath = config.DefaultSocketPath()
		}

		client := ipc.NewClient(socketPath)
		if err := client.Connect(); err != nil {
			return err
		}
		defer client.Close()

		return action(ctx, cmd, client)
	}
}

func cmdStatus(_ context.Context, _ *cli.Command, client *ipc.Client) error {
	status, err := client.Status()
	if err != nil {
		return err
	}

	state := "disabled"
	if status.Enabled {
		state = "enabled"
	}

	fmt.Printf("expandd %s (%s)\n", status.Version, state)
	fmt.Printf("  uptime:       %s\n", status.Uptime.Round(time.Second))
	fmt.Printf("  key source:   %s\n", status.KeySource)
	fmt.Printf("  snippets:     %d (index v%d)\n", status.SnippetCount, status.IndexVersion)
	fmt.Printf("  expansions:   %d\n", status.ExpansionCount)
	fmt.Printf("  suppressed:   %d events\n", status.Suppressed)
	fmt.Printf("  config:       %s\n", status.ConfigPath)
	return nil
}

func cmdEnable(_ context.Context, _ *cli.Command, client *ipc.Client) error {
	return setEnabled(client, true)
}

func cmdDisable(_ context.Context, _ *cli.Command, client *ipc.Client) error {
	return setEnabled(client, false)
}

func setEnabled(client *ipc.Client, enabled bool) error {
	ack, err := client.SetEnabled(enabled)
	if err != nil {
		return err
	}
	if ack.Enabled {
		fmt.Println("expansion enabled")
	} else {
		fmt.Println("expansion disabled")
	}
	return nil
}

func cmdReload(_ context.Context, _ *cli.Command, client *ipc.Client) error {
	result, err := client.Reload()
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("reload failed: %s", result.Error)
	}
	fmt.Printf("reloaded: %d snippets (index v%d)\n", result.SnippetCount, result.IndexVersion)
	return nil
}

func cmdSnippets(_ context.Context, _ *cli.Command, client *ipc.Client) error {
	list, err := client.ListSnippets()
	if err != nil {
		return err
	}
	if len(list.Snippets) == 0 {
		fmt.Println("no snippets loaded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TRIGGER\tLABEL\tENABLED\tFLAGS")
	for _, sn := range list.Snippets {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", sn.Trigger, sn.Label, sn.Enabled, snippetFlags(sn))
	}
	return w.Flush()
}

func snippetFlags(sn ipc.SnippetInfo) string {
	flags := ""
	if sn.PropagateCase {
		flags += "case "
	}
	if sn.WordBoundary {
		flags += "boundary "
	}
	if sn.CursorMarker {
		flags += "cursor"
	}
	return flags
}

func cmdHistory(_ context.Context, cmd *cli.Command, client *ipc.Client) error {
	hist, err := client.History(&ipc.HistoryRequest{
		Limit:   int(cmd.Int("limit")),
		Trigger: cmd.String("trigger"),
	})
	if err != nil {
		return err
	}
	if len(hist.Entries) == 0 {
		fmt.Println("no recorded expansions")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tTRIGGER\tTYPED\tCHARS\tTOOK")
	for _, e := range hist.Entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.Trigger, e.Typed, e.ReplacementLen, e.Duration.Round(time.Millisecond))
	}
	return w.Flush()
}

func cmdStop(_ context.Context, _ *cli.Command, client *ipc.Client) error {
	if err := client.Shutdown(); err != nil {
		return err
	}
	fmt.Println("shutdown requested")
	return nil
}
