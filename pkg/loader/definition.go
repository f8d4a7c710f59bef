// Package loader builds the command, event and job tables from handler
// definition files.
//
// A definition names a handler from the compiled catalog and carries its
// metadata and guard flags. Files are YAML, discovered recursively under the
// handler directory. A load pass builds a fresh table and swaps it in whole.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"tokibot/pkg/commands"
)

// Kind is the type of handler a definition describes.
type Kind string

const (
	KindCommand Kind = "command"
	KindEvent   Kind = "event"
	KindCronjob Kind = "cronjob"
)

// Definition is one handler definition.
type Definition struct {
	Kind Kind   `yaml:"kind"`
	Name string `yaml:"name"`
	// Handler is the catalog key. Defaults to Name.
	Handler     string   `yaml:"handler,omitempty"`
	Aliases     []string `yaml:"aliases,omitempty"`
	Prefix      Prefix   `yaml:"prefix,omitempty"`
	Admin       bool     `yaml:"admin,omitempty"`
	VIP         bool     `yaml:"vip,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Usage       string   `yaml:"usage,omitempty"`
	Category    string   `yaml:"category,omitempty"`

	Schedule string `yaml:"schedule,omitempty"`
	ChatID   int64  `yaml:"chat_id,omitempty"`
	UserID   int64  `yaml:"user_id,omitempty"`
	Timezone string `yaml:"timezone,omitempty"`

	Disabled bool `yaml:"disabled,omitempty"`

	// Source is the file the definition came from.
	Source string `yaml:"-"`
}

// Prefix is a prefix mode. Besides the mode names it accepts true
// (required), false (forbidden) and null (either).
type Prefix string

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Prefix) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: prefix must be a scalar", node.Line)
	}
	switch node.Tag {
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		if b {
			*p = Prefix(commands.PrefixRequired)
		} else {
			*p = Prefix(commands.PrefixForbidden)
		}
	case "!!null":
		*p = Prefix(commands.PrefixEither)
	default:
		*p = Prefix(node.Value)
	}
	return nil
}

// Mode returns the parsed prefix mode.
func (p Prefix) Mode() (commands.PrefixMode, error) {
	return commands.ParsePrefixMode(string(p))
}

// HandlerName returns the catalog key.
func (d Definition) HandlerName() string {
	if d.Handler != "" {
		return d.Handler
	}
	return d.Name
}

// Validate checks the fields required for the definition's kind.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("name is required")
	}
	switch d.Kind {
	case KindCommand:
		if strings.TrimSpace(d.Description) == "" {
			return errors.New("description is required for commands")
		}
		if _, err := commands.ParsePrefixMode(string(d.Prefix)); err != nil {
			return err
		}
	case KindEvent:
	case KindCronjob:
		if strings.TrimSpace(d.Schedule) == "" {
			return errors.New("schedule is required for cronjobs")
		}
	default:
		return fmt.Errorf("unknown kind %q", d.Kind)
	}
	return nil
}

// Parse decodes every YAML document in data.
func Parse(data []byte) ([]Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var defs []Definition
	for {
		var d Definition
		err := dec.Decode(&d)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding definition: %w", err)
		}
		d.Kind = Kind(strings.ToLower(string(d.Kind)))
		defs = append(defs, d)
	}
	return defs, nil
}

// Marshal encodes defs as a multi-document YAML stream.
func Marshal(defs []Definition) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	for _, d := range defs {
		if err := enc.Encode(d); err != nil {
			return nil, fmt.Errorf("encoding definition %s: %w", d.Name, err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
