package parity

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/irsnap/core/errors"
	"github.com/FocuswithJustin/irsnap/core/ir"
)

// Config describes one parity check.
//
//	reference: Vector
//	target: Array
//	marker: PRIVATE
//	rules:
//	  - old: "]"
//	    new: "].to_array"
type Config struct {
	Reference string `yaml:"reference" json:"reference"`
	Target    string `yaml:"target" json:"target"`
	Marker    string `yaml:"marker,omitempty" json:"marker,omitempty"`
	Rules     Rules  `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// VectorArrayConfig is the check between the Vector and Array surfaces:
// array docs name arrays where vector docs name vectors, and every bracketed
// reference gains a conversion.
func VectorArrayConfig() Config {
	return Config{
		Reference: "Vector",
		Target:    "Array",
		Marker:    "PRIVATE",
		Rules: Rules{
			{Old: "]", New: "].to_array"},
			{Old: "a vector", New: "an array"},
			{Old: "vector", New: "array"},
		},
	}
}

// Validate checks that both type names are set and no rule has an empty Old.
func (c Config) Validate() error {
	if c.Reference == "" {
		return errors.NewValidation("reference", "type name is required")
	}
	if c.Target == "" {
		return errors.NewValidation("target", "type name is required")
	}
	for i, r := range c.Rules {
		if r.Old == "" {
			return errors.NewValidation(fmt.Sprintf("rules[%d].old", i), "must not be empty")
		}
	}
	return nil
}

// Check runs the configured check. An empty Marker exempts nothing; every
// reference function then needs documentation.
func (c Config) Check(ref, target ir.Node) (*Report, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return Check(ref, c.Reference, target, c.Target, c.Rules, c.Marker)
}

// ParseConfig decodes and validates a YAML config.
func ParseConfig(data []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, &errors.ParseError{
			Format:  "yaml",
			Message: err.Error(),
			Err:     err,
		}
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.NewIO("read", path, err)
	}
	c, err := ParseConfig(data)
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return Config{}, err
	}
	return c, nil
}
