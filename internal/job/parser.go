package job

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/kvs-go/internal/core/domain"
)

// Kind identifies a job command.
type Kind int

const (
	KindInvalid Kind = iota
	KindEmpty
	KindWrite
	KindRead
	KindDelete
	KindShow
	KindWait
	KindBackup
	KindHelp
)

var kindNames = map[Kind]string{
	KindInvalid: "INVALID",
	KindEmpty:   "EMPTY",
	KindWrite:   "WRITE",
	KindRead:    "READ",
	KindDelete:  "DELETE",
	KindShow:    "SHOW",
	KindWait:    "WAIT",
	KindBackup:  "BACKUP",
	KindHelp:    "HELP",
}

// bareKinds are the commands without arguments.
var bareKinds = map[string]Kind{
	"SHOW":   KindShow,
	"BACKUP": KindBackup,
	"HELP":   KindHelp,
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// Usage is the text written by HELP.
const Usage = "Available commands:\n" +
	"  WRITE [(key,value)(key2,value2),...]\n" +
	"  READ [key,key2,...]\n" +
	"  DELETE [key,key2,...]\n" +
	"  SHOW\n" +
	"  WAIT <delay_ms>\n" +
	"  BACKUP\n" +
	"  HELP\n"

// Command is one parsed line of a job file.
type Command struct {
	Kind   Kind
	Line   int
	Keys   []string
	Values []string
	Delay  time.Duration
}

// Parser reads commands from a job file.
type Parser struct {
	sc   *bufio.Scanner
	line int
}

// NewParser creates a parser over r.
func NewParser(r io.Reader) *Parser {
	return &Parser{sc: bufio.NewScanner(r)}
}

// Next returns the next command. It returns io.EOF after the last line.
// A malformed line yields a KindInvalid command together with an
// ErrMalformedCommand error; parsing can continue after it.
func (p *Parser) Next() (Command, error) {
	if !p.sc.Scan() {
		if err := p.sc.Err(); err != nil {
			return Command{}, err
		}
		return Command{}, io.EOF
	}
	p.line++
	cmd, err := ParseLine(p.sc.Text())
	cmd.Line = p.line
	return cmd, err
}

// ParseLine parses a single command line.
func ParseLine(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Command{Kind: KindEmpty}, nil
	}

	word, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch word {
	case "WRITE":
		keys, values, err := parsePairs(rest)
		if err != nil {
			return invalid(err)
		}
		return Command{Kind: KindWrite, Keys: keys, Values: values}, nil

	case "READ", "DELETE":
		keys, err := parseKeys(rest)
		if err != nil {
			return invalid(err)
		}
		kind := KindRead
		if word == "DELETE" {
			kind = KindDelete
		}
		return Command{Kind: kind, Keys: keys}, nil

	case "WAIT":
		ms, err := strconv.ParseUint(rest, 10, 32)
		if err != nil {
			return invalid(domain.ErrMalformedCommand.WithDetails("WAIT needs a delay in milliseconds"))
		}
		return Command{Kind: KindWait, Delay: time.Duration(ms) * time.Millisecond}, nil

	case "SHOW", "BACKUP", "HELP":
		if rest != "" {
			return invalid(domain.ErrMalformedCommand.WithDetails(word + " takes no arguments"))
		}
		return Command{Kind: bareKinds[word]}, nil
	}

	return invalid(domain.ErrMalformedCommand.WithDetails("unknown command " + word))
}

func invalid(err error) (Command, error) {
	return Command{Kind: KindInvalid}, err
}

// parsePairs parses "[(k,v)(k2,v2)...]".
func parsePairs(s string) ([]string, []string, error) {
	body, err := brackets(s)
	if err != nil {
		return nil, nil, err
	}

	var keys, values []string
	for {
		body = strings.TrimLeft(body, " \t,")
		if body == "" {
			break
		}
		if body[0] != '(' {
			return nil, nil, domain.ErrMalformedCommand.WithDetails("expected '('")
		}
		end := strings.IndexByte(body, ')')
		if end < 0 {
			return nil, nil, domain.ErrMalformedCommand.WithDetails("unterminated pair")
		}
		k, v, ok := strings.Cut(body[1:end], ",")
		if !ok {
			return nil, nil, domain.ErrMalformedCommand.WithDetails("pair without value")
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if err := checkToken(k); err != nil {
			return nil, nil, err
		}
		if err := checkToken(v); err != nil {
			return nil, nil, err
		}
		keys = append(keys, k)
		values = append(values, v)
		if len(keys) > domain.MaxWriteSize {
			return nil, nil, domain.ErrMalformedCommand.WithDetails("too many pairs")
		}
		body = body[end+1:]
	}

	if len(keys) == 0 {
		return nil, nil, domain.ErrMalformedCommand.WithDetails("no pairs")
	}
	return keys, values, nil
}

// ParseKeys parses a bracketed key list such as "[a,b]".
func ParseKeys(s string) ([]string, error) {
	return parseKeys(strings.TrimSpace(s))
}

// parseKeys parses "[k,k2,...]".
func parseKeys(s string) ([]string, error) {
	body, err := brackets(s)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, domain.ErrMalformedCommand.WithDetails("no keys")
	}

	parts := strings.Split(body, ",")
	if len(parts) > domain.MaxWriteSize {
		return nil, domain.ErrMalformedCommand.WithDetails("too many keys")
	}
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		k := strings.TrimSpace(p)
		if err := checkToken(k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func brackets(s string) (string, error) {
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return "", domain.ErrMalformedCommand.WithDetails("expected [...]")
	}
	return s[1 : len(s)-1], nil
}

func checkToken(s string) error {
	if err := domain.ValidateToken(s); err != nil {
		return domain.ErrMalformedCommand.WithCause(err)
	}
	return nil
}
