// Package scenario loads case definitions written in YAML and turns them into cases.
package scenario

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dyluth/sleuth/pkg/casefile"
)

// Definition is the on-disk description of a case.
type Definition struct {
	Title           string              `yaml:"title"`
	Categories      []casefile.Category `yaml:"categories"`
	Actions         []casefile.Action   `yaml:"actions"`
	Rules           []casefile.Rule     `yaml:"rules,omitempty"`
	ExclusionGroups [][]string          `yaml:"exclusion_groups,omitempty"`
	Solution        map[string]string   `yaml:"solution,omitempty"`
}

// Parse decodes a definition, rejecting unknown fields.
func Parse(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if def.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	return &def, nil
}

// Load reads and parses a definition file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read case definition: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// LoadDir loads every .yml and .yaml file in dir, sorted by file name.
func LoadDir(dir string) (map[string]*Definition, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read directory: %w", err)
	}

	defs := make(map[string]*Definition)
	var names []string
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".yml" && ext != ".yaml") {
			continue
		}
		def, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, nil, err
		}
		defs[entry.Name()] = def
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return defs, names, nil
}

// NewCase builds a validated case with the given id.
func (d *Definition) NewCase(id string, now time.Time) (*casefile.Case, error) {
	c := &casefile.Case{
		ID:              id,
		Title:           d.Title,
		Categories:      d.Categories,
		Actions:         d.Actions,
		Evidence:        []casefile.Evidence{},
		Rules:           d.Rules,
		ExclusionGroups: d.ExclusionGroups,
		Solution:        d.Solution,
		CreatedAtMs:     now.UnixMilli(),
	}
	if c.Actions == nil {
		c.Actions = []casefile.Action{}
	}
	c = c.Clone()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid case definition: %w", err)
	}
	return c, nil
}
