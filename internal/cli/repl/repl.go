package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/yndnr/kvs-go/internal/job"
)

// Client is the session the REPL drives.
type Client interface {
	Subscribe(key string) (byte, error)
	Unsubscribe(key string) (byte, error)
	Disconnect() (byte, error)
}

// Usage is printed by HELP.
const Usage = "Available commands:\n" +
	"  SUBSCRIBE [key]\n" +
	"  UNSUBSCRIBE [key]\n" +
	"  DELAY <delay_ms>\n" +
	"  DISCONNECT\n" +
	"  HELP\n"

// ErrInput is reported for lines that are not valid commands.
var ErrInput = errors.New("invalid command. See HELP for usage")

// REPL represents the client command loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	errOut    io.Writer
	client    Client
	completer *Completer

	// Disconnected is set once DISCONNECT succeeded.
	Disconnected bool

	disconnecting atomic.Bool
}

// New creates a REPL over stdin and stdout.
func New(client Client) *REPL {
	return NewWithIO(client, os.Stdin, os.Stdout, os.Stderr)
}

// NewWithIO creates a REPL with explicit streams.
func NewWithIO(client Client, in io.Reader, out, errOut io.Writer) *REPL {
	return &REPL{
		input:     in,
		output:    out,
		errOut:    errOut,
		client:    client,
		completer: NewCompleter(),
	}
}

// Run reads commands until DISCONNECT, end of input or ctx is done.
// A session failure ends the loop with that error.
func (r *REPL) Run(ctx context.Context) error {
	sc := bufio.NewScanner(r.input)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		done, err := r.execute(ctx, sc.Text())
		switch {
		case errors.Is(err, ErrInput):
			fmt.Fprintln(r.errOut, "Invalid command. See HELP for usage")
			if s := r.suggest(sc.Text()); s != "" {
				fmt.Fprintf(r.errOut, "Did you mean %s?\n", s)
			}
		case err != nil:
			return err
		}
		if done {
			return nil
		}
	}
	return sc.Err()
}

func (r *REPL) execute(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return false, nil
	}
	word, rest, _ := strings.Cut(line, " ")

	switch word {
	case "SUBSCRIBE", "UNSUBSCRIBE":
		keys, err := job.ParseKeys(rest)
		if err != nil || len(keys) != 1 {
			return false, ErrInput
		}
		call, op := r.client.Subscribe, "subscribe"
		if word == "UNSUBSCRIBE" {
			call, op = r.client.Unsubscribe, "unsubscribe"
		}
		status, err := call(keys[0])
		if err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		r.printStatus(status, op)
		return false, nil

	case "DELAY":
		ms, err := strconv.ParseUint(strings.TrimSpace(rest), 10, 32)
		if err != nil {
			return false, ErrInput
		}
		if ms > 0 {
			fmt.Fprintln(r.output, "Waiting...")
			return false, sleep(ctx, time.Duration(ms)*time.Millisecond)
		}
		return false, nil

	case "DISCONNECT":
		if strings.TrimSpace(rest) != "" {
			return false, ErrInput
		}
		r.disconnecting.Store(true)
		status, err := r.client.Disconnect()
		if err != nil {
			return true, fmt.Errorf("disconnect: %w", err)
		}
		r.printStatus(status, "disconnect")
		r.Disconnected = true
		fmt.Fprintln(r.output, "Disconnected from server")
		return true, nil

	case "HELP":
		fmt.Fprint(r.output, Usage)
		return false, nil
	}
	return false, ErrInput
}

// Disconnecting reports whether a DISCONNECT request has been sent. The
// server closes the notification channel as soon as it accepts one, so
// that closure is expected from then on.
func (r *REPL) Disconnecting() bool {
	return r.disconnecting.Load()
}

func (r *REPL) printStatus(status byte, op string) {
	fmt.Fprintf(r.output, "Server returned %c for operation: %s\n", status, op)
}

func (r *REPL) suggest(line string) string {
	word, _, _ := strings.Cut(strings.TrimSpace(line), " ")
	s := r.completer.Suggest(word)
	if s == word {
		return ""
	}
	return s
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
