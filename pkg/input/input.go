// Package input resolves the operator-supplied run configuration.
//
// The input document is JSON or YAML:
//
//	{"limit": 15, "maxPages": 5}
//
// Both fields are optional. Values are passed through unchanged, so zero
// or negative values reach the fetch loop as given.
package input

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

const (
	// DefaultLimit is the page size used when the input omits limit.
	DefaultLimit = 15

	// DefaultMaxPages caps the pages fetched when the input omits maxPages.
	DefaultMaxPages = 5
)

// Input is the raw operator input. Nil fields fall back to defaults.
type Input struct {
	Limit    *int `yaml:"limit" json:"limit,omitempty"`
	MaxPages *int `yaml:"maxPages" json:"maxPages,omitempty"`
}

// Settings is the resolved configuration for one run.
type Settings struct {
	Limit    int
	MaxPages int
}

// Resolve applies defaults to absent fields.
func Resolve(in Input) Settings {
	s := Settings{
		Limit:    DefaultLimit,
		MaxPages: DefaultMaxPages,
	}
	if in.Limit != nil {
		s.Limit = *in.Limit
	}
	if in.MaxPages != nil {
		s.MaxPages = *in.MaxPages
	}
	return s
}

// Parse decodes an input document. Blank documents yield a zero Input.
func Parse(data []byte) (Input, error) {
	var in Input
	if strings.TrimSpace(string(data)) == "" {
		return in, nil
	}
	if err := yaml.Unmarshal(data, &in); err != nil {
		return Input{}, fmt.Errorf("parse input: %w", err)
	}
	return in, nil
}

// Load reads an input document from path. An empty path means no input.
func Load(path string) (Input, error) {
	if path == "" {
		return Input{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Input{}, fmt.Errorf("read input %s: %w", path, err)
	}
	return Parse(data)
}

// FromEnv resolves the input from AANBOD_INPUT_PATH, then the inline
// AANBOD_INPUT document.
func FromEnv(getenv func(string) string) (Input, error) {
	if path := getenv("AANBOD_INPUT_PATH"); path != "" {
		return Load(path)
	}
	return Parse([]byte(getenv("AANBOD_INPUT")))
}
