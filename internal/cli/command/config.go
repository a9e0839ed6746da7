package command

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/kvs-go/internal/cli/config"
	"github.com/yndnr/kvs-go/internal/cli/output"
)

// ConfigCommand returns the config subcommand.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "inspect or create the client configuration file",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "print the effective configuration as YAML",
				Action: showConfig,
			},
			{
				Name:  "init",
				Usage: "write the current configuration to the config file",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "overwrite an existing file",
					},
				},
				Action: initConfig,
			},
		},
	}
}

// effectiveConfig applies set flags and environment variables over the
// loaded file.
func effectiveConfig(c *cli.Context) *config.CLIConfig {
	cfg := *clientConfig(c)
	cfg.PipeDir = pipeDir(c)
	if addr := os.Getenv("KVS_ADMIN_ADDR"); addr != "" {
		cfg.Admin = addr
	}
	return &cfg
}

func showConfig(c *cli.Context) error {
	return output.NewFormatter(output.FormatYAML).Format(c.App.Writer, effectiveConfig(c))
}

func initConfig(c *cli.Context) error {
	path := c.String("config")
	if path == "" {
		return errors.New("no config path: set --config")
	}
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s exists; use --force to overwrite", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if err := config.Save(effectiveConfig(c), path); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %s\n", path)
	return nil
}
