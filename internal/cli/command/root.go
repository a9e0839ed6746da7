package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/kvs-go/internal/cli/config"
	"github.com/yndnr/kvs-go/internal/cli/connection"
	"github.com/yndnr/kvs-go/internal/cli/repl"
	"github.com/yndnr/kvs-go/internal/infra/buildinfo"
	"github.com/yndnr/kvs-go/pkg/wire"
)

// ErrServerClosed is returned when the server ends the session.
var ErrServerClosed = errors.New("connection closed by server")

// Options wires the application to its streams.
type Options struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Opener replaces FIFO transport; nil uses real FIFOs.
	Opener wire.Opener
}

// App creates the CLI application on the process streams.
func App() *cli.App {
	return NewApp(Options{In: os.Stdin, Out: os.Stdout, Err: os.Stderr})
}

// NewApp creates the CLI application.
func NewApp(opts Options) *cli.App {
	out := &syncWriter{w: opts.Out}
	errOut := &syncWriter{w: opts.Err}

	return &cli.App{
		Name:      "kvs-client",
		Usage:     "connect to a kvs-server and watch keys",
		ArgsUsage: "<client_unique_id> <register_pipe_path>",
		Version:   buildinfo.String(),
		Writer:    out,
		ErrWriter: errOut,
		Flags:     globalFlags(),
		Before:    loadConfig,
		Commands: []*cli.Command{
			StatsCommand(),
			ResetCommand(),
			ConfigCommand(),
		},
		Action: func(c *cli.Context) error {
			return runSession(c, opts.In, out, errOut, opts.Opener)
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "client configuration file",
			EnvVars: []string{"KVS_CLIENT_CONFIG"},
			Value:   config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "pipe-dir",
			Usage:   "directory for the client's request, response and notification FIFOs",
			EnvVars: []string{"KVS_PIPE_DIR"},
			Value:   connection.DefaultPipeDir,
		},
	}
}

func runSession(c *cli.Context, in io.Reader, out, errOut io.Writer, opener wire.Opener) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: %s %s", c.App.Name, c.App.ArgsUsage)
	}
	id, register := c.Args().Get(0), c.Args().Get(1)
	if err := validateClientID(id); err != nil {
		return err
	}

	client := connection.NewPipeClient(connection.Config{
		ID:           id,
		RegisterPath: register,
		PipeDir:      pipeDir(c),
		Opener:       opener,
	})
	err := client.Connect()
	switch {
	case errors.Is(err, connection.ErrRejected):
		fmt.Fprintf(out, "Server returned %c for operation: connect\n", wire.StatusFail)
		return err
	case err != nil:
		return fmt.Errorf("connect: %w", err)
	}
	fmt.Fprintf(out, "Server returned %c for operation: connect\n", wire.StatusOK)

	notifDone := make(chan struct{})
	go func() {
		defer close(notifDone)
		printNotifications(client.Notifications(), out)
	}()

	r := repl.NewWithIO(client, in, out, errOut)
	replDone := make(chan error, 1)
	go func() { replDone <- r.Run(c.Context) }()

	select {
	case err = <-replDone:
		if !r.Disconnected {
			client.Close()
		}
		<-notifDone
		return err
	case <-notifDone:
		if r.Disconnecting() {
			return <-replDone
		}
		client.Close()
		return ErrServerClosed
	case <-c.Context.Done():
		client.Close()
		<-notifDone
		return c.Context.Err()
	}
}

// loadConfig reads the client configuration file into the app metadata.
func loadConfig(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

const configKey = "config"

// clientConfig returns the loaded configuration, or the defaults when
// the Before hook did not run.
func clientConfig(c *cli.Context) *config.CLIConfig {
	if cfg, ok := c.App.Metadata[configKey].(*config.CLIConfig); ok {
		return cfg
	}
	return config.Default()
}

// pipeDir prefers the flag or its environment variable over the file.
func pipeDir(c *cli.Context) string {
	if cfg := clientConfig(c); !c.IsSet("pipe-dir") && cfg.PipeDir != "" {
		return cfg.PipeDir
	}
	return c.String("pipe-dir")
}

// printNotifications copies notification lines to out until the channel
// is closed.
func printNotifications(r io.Reader, out io.Writer) {
	if r == nil {
		return
	}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fmt.Fprintln(out, sc.Text())
	}
}

func validateClientID(id string) error {
	if id == "" || strings.ContainsAny(id, "/\\\x00") || len(id) > 64 {
		return fmt.Errorf("invalid client id %q", id)
	}
	return nil
}

// syncWriter serializes writes from the command loop and the
// notification printer.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
