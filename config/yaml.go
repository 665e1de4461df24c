package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// parseYaml decodes a single yaml document, rejecting unknown keys.
func parseYaml(out interface{}, blob []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(blob))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty config: %w", ErrInvalidConfig)
		}
		return fmt.Errorf("can't parse yaml: %w", err)
	}
	return nil
}
