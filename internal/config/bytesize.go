package config

import (
	"strconv"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// ByteSize is a byte count that accepts plain integers or human readable
// sizes ("5MiB", "512 kB") in YAML.
type ByteSize int

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *ByteSize) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if n, err := strconv.Atoi(raw); err == nil {
		*b = ByteSize(n)
		return nil
	}
	n, err := humanize.ParseBytes(raw)
	if err != nil {
		return err
	}
	*b = ByteSize(n) //nolint:gosec // sizes beyond MaxInt are rejected by Validate as non-positive
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (b ByteSize) MarshalYAML() (any, error) {
	return humanize.IBytes(uint64(b)), nil //nolint:gosec // negative sizes never pass Validate
}

func (b ByteSize) String() string {
	return humanize.IBytes(uint64(b)) //nolint:gosec // see MarshalYAML
}
