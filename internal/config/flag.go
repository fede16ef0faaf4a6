package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Flag is an on/off setting. Besides YAML booleans it accepts the '0' and '1'
// strings used by legacy configuration files, and always marshals as a bool.
type Flag bool

// ParseFlag maps "0" to false and "1" to true. Anything else is an error.
func ParseFlag(s string) (bool, error) {
	switch s {
	case "0":
		return false, nil
	case "1":
		return true, nil
	}
	return false, fmt.Errorf("invalid flag value %q: want '0' or '1'", s)
}

func (f *Flag) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: flag must be a scalar", value.Line)
	}

	if value.Tag == "!!bool" {
		var b bool
		if err := value.Decode(&b); err != nil {
			return err
		}
		*f = Flag(b)
		return nil
	}

	b, err := ParseFlag(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*f = Flag(b)
	return nil
}

func (f Flag) MarshalYAML() (interface{}, error) {
	return bool(f), nil
}

// String renders the flag the way legacy configuration files store it.
func (f Flag) String() string {
	if f {
		return "1"
	}
	return "0"
}
