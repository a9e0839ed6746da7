package config

import (
	"github.com/yndnr/kvs-go/internal/cli/output"
)

// CLIConfig is the configuration for kvs-client.
type CLIConfig struct {
	// PipeDir holds the client's request, response and notification FIFOs.
	PipeDir string `yaml:"pipe_dir" json:"pipe_dir"`

	// Admin is the server's admin endpoint (host:port).
	Admin string `yaml:"admin" json:"admin"`

	// Output is the default format for admin commands.
	Output string `yaml:"output" json:"output"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Output: string(output.FormatTable),
	}
}

// Validate checks the configured values.
func (c *CLIConfig) Validate() error {
	_, err := output.ParseFormat(c.Output)
	return err
}
