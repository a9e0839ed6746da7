package confloader

import (
	"errors"

	"github.com/knadh/koanf/maps"
)

// ErrReadBytesNotSupported is returned by the flag provider's ReadBytes.
var ErrReadBytesNotSupported = errors.New("confloader: flag provider has no byte form")

// mapProvider serves dotted flag keys to koanf.
type mapProvider map[string]any

// ReadBytes is not supported.
func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, ErrReadBytesNotSupported
}

// Read returns the flags as a nested map.
func (m mapProvider) Read() (map[string]any, error) {
	return maps.Unflatten(m, "."), nil
}
