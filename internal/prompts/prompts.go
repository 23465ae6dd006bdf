// Package prompts loads the language model instructions from an embedded YAML catalog.
package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Prompt names every catalog must define.
const (
	Intent    = "intent"
	Analytics = "analytics"
	Summary   = "summary"
)

var required = []string{Intent, Analytics, Summary}

//go:embed prompts.yaml
var defaultCatalog []byte

// Prompt is one system/user instruction pair. Both are text/template sources.
type Prompt struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`

	system *template.Template
	user   *template.Template
}

// Catalog is the parsed prompts.yaml file.
type Catalog struct {
	SchemaVersion string            `yaml:"schema_version"`
	Prompts       map[string]Prompt `yaml:"prompts"`
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// MustLoad is Load for program initialization; the embedded file is fixed at build time.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse reads a catalog with strict validation.
// Unknown YAML fields are rejected and every required prompt must be present.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to parse prompt catalog: %w", err)
	}

	if c.SchemaVersion == "" {
		c.SchemaVersion = "v1"
	}

	for _, name := range required {
		if _, ok := c.Prompts[name]; !ok {
			return nil, fmt.Errorf("prompt catalog missing required prompt: %s", name)
		}
	}

	for name, p := range c.Prompts {
		var err error
		if p.system, err = template.New(name + ".system").Option("missingkey=error").Parse(p.System); err != nil {
			return nil, fmt.Errorf("failed to parse prompt %s: %w", name, err)
		}
		if p.user, err = template.New(name + ".user").Option("missingkey=error").Parse(p.User); err != nil {
			return nil, fmt.Errorf("failed to parse prompt %s: %w", name, err)
		}
		c.Prompts[name] = p
	}

	return &c, nil
}

// Render executes the named prompt against data and returns the system and user messages.
func (c *Catalog) Render(name string, data any) (system, user string, err error) {
	p, ok := c.Prompts[name]
	if !ok {
		return "", "", fmt.Errorf("unknown prompt: %s", name)
	}

	var sb, ub strings.Builder
	if err := p.system.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("failed to render prompt %s: %w", name, err)
	}
	if err := p.user.Execute(&ub, data); err != nil {
		return "", "", fmt.Errorf("failed to render prompt %s: %w", name, err)
	}

	return strings.TrimSpace(sb.String()), strings.TrimSpace(ub.String()), nil
}
