package confloader

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "KVS_"

// Loader loads configuration from multiple sources.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	flags     map[string]any
	loaded    bool
}

// Option is a function that configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the configuration file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithFlags sets flag values keyed by configuration path. Nil, empty
// string and zero entries are treated as unset.
func WithFlags(flags map[string]any) Option {
	return func(l *Loader) {
		l.flags = flags
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FilePath returns the configuration file, or "" when none is used.
func (l *Loader) FilePath() string {
	return l.filePath
}

// Load reads file, environment and flags in increasing priority and
// unmarshals the result over target.
func (l *Loader) Load(target any) error {
	if l.filePath != "" {
		if err := l.LoadFile(l.filePath); err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
	}
	if err := l.LoadEnv(); err != nil {
		return err
	}
	if err := l.LoadFlags(l.flags); err != nil {
		return err
	}
	if err := l.Unmarshal(target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	l.loaded = true
	return nil
}

// Reload discards loaded values and loads all sources again.
func (l *Loader) Reload(target any) error {
	l.k = koanf.New(".")
	l.loaded = false
	return l.Load(target)
}

// LoadFile loads configuration from a YAML file.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load file %s: %w", path, err)
	}
	return nil
}

// LoadEnv loads configuration from environment variables:
// KVS_SERVER_SESSIONS_MAX -> server.sessions.max.
func (l *Loader) LoadEnv() error {
	envTransformer := func(s string) string {
		s = strings.TrimPrefix(s, l.envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "_", ".")
	}

	if err := l.k.Load(env.Provider(l.envPrefix, ".", envTransformer), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// LoadFlags loads the set entries of flags.
func (l *Loader) LoadFlags(flags map[string]any) error {
	set := make(mapProvider, len(flags))
	for k, v := range flags {
		if !isZero(v) {
			set[k] = v
		}
	}
	if len(set) == 0 {
		return nil
	}
	if err := l.k.Load(set, nil); err != nil {
		return fmt.Errorf("load flags: %w", err)
	}
	return nil
}

// Unmarshal unmarshals the loaded configuration into target using
// koanf struct tags.
func (l *Loader) Unmarshal(target any) error {
	return l.k.Unmarshal("", target)
}

// String returns a string value by key.
func (l *Loader) String(key string) string {
	return l.k.String(key)
}

// IsLoaded returns true if configuration has been loaded.
func (l *Loader) IsLoaded() bool {
	return l.loaded
}

// Keys returns all loaded configuration keys.
func (l *Loader) Keys() []string {
	return l.k.Keys()
}

func isZero(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case int:
		return x == 0
	case int64:
		return x == 0
	case uint:
		return x == 0
	case float64:
		return x == 0
	case bool:
		return !x
	case []string:
		return len(x) == 0
	default:
		return false
	}
}
