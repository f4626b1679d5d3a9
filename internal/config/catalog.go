package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	domai "github.com/bryanwahyu/accommodation-engine/internal/domain/ai"
	"github.com/bryanwahyu/accommodation-engine/internal/domain/analysis"
)

// DefaultModelConfig is used for modules without a usable entry.
var DefaultModelConfig = analysis.ModelConfig{Model: "gpt-4o", MaxTokens: 4000, Temperature: 0.3}

// PromptEntry is one versioned system prompt.
type PromptEntry struct {
	Module  string `yaml:"module"`
	Pathway string `yaml:"pathway"`
	Version int    `yaml:"version"`
	Content string `yaml:"content"`
}

type catalogFile struct {
	Prompts   []PromptEntry     `yaml:"prompts"`
	Templates map[string]string `yaml:"templates"`
}

type promptKey struct {
	module  analysis.ModuleType
	pathway analysis.Pathway
}

// Catalog serves model settings, system prompts and report templates. It is
// read-only after construction and safe for concurrent use.
type Catalog struct {
	models    map[analysis.ModuleType]analysis.ModelConfig
	prompts   map[promptKey]PromptEntry
	templates map[analysis.ModuleType]string
}

// LoadCatalog reads the prompt catalog file and combines it with the
// per-module model settings from the main config.
func LoadCatalog(path string, models map[string]analysis.ModelConfig) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse prompt catalog %s: %w", path, err)
	}
	return NewCatalog(models, f.Prompts, f.Templates)
}

// NewCatalog keeps the highest version per (module, pathway).
func NewCatalog(models map[string]analysis.ModelConfig, prompts []PromptEntry, templates map[string]string) (*Catalog, error) {
	c := &Catalog{
		models:    map[analysis.ModuleType]analysis.ModelConfig{},
		prompts:   map[promptKey]PromptEntry{},
		templates: map[analysis.ModuleType]string{},
	}
	for name, mc := range models {
		m, err := analysis.ParseModuleType(name)
		if err != nil {
			return nil, err
		}
		c.models[m] = mc
	}
	for i, p := range prompts {
		m, err := analysis.ParseModuleType(p.Module)
		if err != nil {
			return nil, fmt.Errorf("prompt %d: %w", i, err)
		}
		pw, err := analysis.ParsePathway(p.Pathway)
		if err != nil || pw == analysis.PathwayUnset {
			return nil, fmt.Errorf("prompt %d: pathway must be simple or complex, got %q", i, p.Pathway)
		}
		if strings.TrimSpace(p.Content) == "" {
			continue
		}
		k := promptKey{module: m, pathway: pw}
		if cur, ok := c.prompts[k]; !ok || p.Version > cur.Version {
			c.prompts[k] = p
		}
	}
	for name, tpl := range templates {
		m, err := analysis.ParseModuleType(name)
		if err != nil {
			return nil, fmt.Errorf("template: %w", err)
		}
		c.templates[m] = tpl
	}
	return c, nil
}

// ModelConfig never fails; a missing or invalid entry yields the default.
func (c *Catalog) ModelConfig(module analysis.ModuleType) analysis.ModelConfig {
	mc, ok := c.models[module]
	if !ok || !validModel(mc) {
		return DefaultModelConfig
	}
	return mc
}

func validModel(mc analysis.ModelConfig) bool {
	return strings.TrimSpace(mc.Model) != "" && mc.MaxTokens > 0 && mc.Temperature >= 0 && mc.Temperature <= 2
}

func (c *Catalog) SystemPrompt(module analysis.ModuleType, pathway analysis.Pathway) (string, error) {
	p, ok := c.prompts[promptKey{module: module, pathway: pathway}]
	if !ok {
		return "", fmt.Errorf("%w: module=%s pathway=%s", domai.ErrPromptNotFound, module, pathway)
	}
	return p.Content, nil
}

// PromptVersion reports which version SystemPrompt serves, 0 if none.
func (c *Catalog) PromptVersion(module analysis.ModuleType, pathway analysis.Pathway) int {
	return c.prompts[promptKey{module: module, pathway: pathway}].Version
}

func (c *Catalog) ReportTemplate(module analysis.ModuleType) (string, bool) {
	tpl, ok := c.templates[module]
	if !ok || strings.TrimSpace(tpl) == "" {
		return "", false
	}
	return tpl, true
}
