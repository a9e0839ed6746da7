package repl

import "strings"

// Completer suggests client commands.
type Completer struct {
	commands []string
}

// NewCompleter creates a new Completer.
func NewCompleter() *Completer {
	return &Completer{
		commands: []string{"SUBSCRIBE", "UNSUBSCRIBE", "DELAY", "DISCONNECT", "HELP"},
	}
}

// Complete returns the commands that start with prefix, ignoring case.
func (c *Completer) Complete(prefix string) []string {
	prefix = strings.ToUpper(prefix)
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}

// Suggest returns the closest command to a mistyped word, or "" when
// nothing is close.
func (c *Completer) Suggest(word string) string {
	word = strings.ToUpper(word)
	if word == "" {
		return ""
	}
	if s := c.Complete(word); len(s) == 1 {
		return s[0]
	}

	best, bestDist := "", len(word)/2+1
	for _, cmd := range c.commands {
		if d := distance(word, cmd); d < bestDist {
			best, bestDist = cmd, d
		}
	}
	return best
}

// distance is the Levenshtein distance between a and b.
func distance(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
