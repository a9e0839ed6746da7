package domain

import (
	"io"
	"strings"
)

// Limits shared by the tokenizer, the store and the session protocol.
const (
	// MaxStringSize is the maximum length of a key or value.
	MaxStringSize = 40

	// MaxWriteSize is the maximum number of pairs or keys in one batch.
	MaxWriteSize = 256

	// MaxSubscriptions is the default bound on a session's subscribed keys.
	MaxSubscriptions = 10
)

// Output markers written in place of a value.
const (
	// MarkerReadMissing is emitted by READ for an absent key.
	MarkerReadMissing = "KVSERROR"

	// MarkerDeleteMissing is emitted by DELETE for an absent key.
	MarkerDeleteMissing = "KVSMISSING"

	// MarkerDeleted is sent to subscribers when a key is deleted.
	MarkerDeleted = "DELETED"
)

// reservedChars may not appear inside a key or value because the
// command and wire formats use them as delimiters.
const reservedChars = "()[],| \t\r\n"

// Entry is a stored key-value pair.
type Entry struct {
	Key   string
	Value string
}

// WriteShowLine writes the "(key, value)\n" line used by SHOW output
// and backup files.
func WriteShowLine(w io.StringWriter, key, value string) error {
	_, err := w.WriteString("(" + key + ", " + value + ")\n")
	return err
}

// ParseShowLine is the inverse of WriteShowLine for a line without its
// trailing newline.
func ParseShowLine(line string) (Entry, bool) {
	if !strings.HasPrefix(line, "(") || !strings.HasSuffix(line, ")") {
		return Entry{}, false
	}
	key, value, ok := strings.Cut(line[1:len(line)-1], ", ")
	if !ok {
		return Entry{}, false
	}
	return Entry{Key: key, Value: value}, true
}

// ValidateToken checks a key or value against the size and character
// limits. It does not check shard routing.
func ValidateToken(s string) error {
	if s == "" {
		return ErrInvalidKey.WithDetails("empty")
	}
	if len(s) > MaxStringSize {
		return ErrInvalidKey.WithDetails("longer than 40 bytes")
	}
	if strings.ContainsAny(s, reservedChars) {
		return ErrInvalidKey.WithDetails("reserved character in " + s)
	}
	return nil
}
