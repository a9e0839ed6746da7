package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/kvs-go/internal/cli/connection"
	"github.com/yndnr/kvs-go/internal/cli/output"
)

const adminTimeout = 10 * time.Second

func adminFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "admin",
		Aliases: []string{"a"},
		Usage:   "admin endpoint of kvs-server (host:port)",
		EnvVars: []string{"KVS_ADMIN_ADDR"},
	}
}

// adminAddr prefers the flag or its environment variable over the file.
func adminAddr(c *cli.Context) (string, error) {
	addr := c.String("admin")
	if addr == "" {
		addr = clientConfig(c).Admin
	}
	if addr == "" {
		return "", errors.New("admin address required: set --admin, KVS_ADMIN_ADDR or admin in the config file")
	}
	return addr, nil
}

// StatsCommand returns the stats subcommand.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "show store and session statistics",
		Flags: []cli.Flag{
			adminFlag(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output format: table, json, yaml",
			},
		},
		Action: stats,
	}
}

// ResetCommand returns the reset subcommand.
func ResetCommand() *cli.Command {
	return &cli.Command{
		Name:   "reset",
		Usage:  "disconnect every client session",
		Flags:  []cli.Flag{adminFlag()},
		Action: reset,
	}
}

// StatsReport is the stats subcommand's result.
type StatsReport struct {
	Status   string                 `json:"status" yaml:"status"`
	Keys     int                    `json:"keys" yaml:"keys"`
	Sessions int                    `json:"sessions" yaml:"sessions"`
	Shards   []connection.ShardStat `json:"shards" yaml:"shards"`
}

// Table renders the report with one row per non-empty shard.
func (r *StatsReport) Table() *output.Table {
	t := &output.Table{Headers: []string{"SHARD", "KEYS"}}
	for _, s := range r.Shards {
		if s.Keys > 0 {
			t.AddRow(s.Shard, s.Keys)
		}
	}
	t.AddRow("total", r.Keys)
	t.AddRow("sessions", r.Sessions)
	return t
}

func stats(c *cli.Context) error {
	name := c.String("output")
	if !c.IsSet("output") {
		name = clientConfig(c).Output
	}
	format, err := output.ParseFormat(name)
	if err != nil {
		return err
	}
	addr, err := adminAddr(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, adminTimeout)
	defer cancel()

	client := connection.NewAdminClient(addr)
	health, err := client.Health(ctx)
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	shards, err := client.Shards(ctx)
	if err != nil {
		return fmt.Errorf("shards: %w", err)
	}

	report := &StatsReport{
		Status:   health.Status,
		Keys:     health.Keys,
		Sessions: health.Sessions,
		Shards:   shards,
	}
	return output.NewFormatter(format).Format(c.App.Writer, report)
}

func reset(c *cli.Context) error {
	addr, err := adminAddr(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Context, adminTimeout)
	defer cancel()

	n, err := connection.NewAdminClient(addr).Reset(ctx)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "disconnected %d session(s)\n", n)
	return nil
}
