package rag

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"pmcbot/internal/query"
	"pmcbot/internal/records"
)

//go:embed templates.yaml
var defaultTemplatesYAML []byte

// Localized maps a language code to text; English is the fallback.
type Localized map[string]string

func (l Localized) get(lang query.Language) string {
	if s, ok := l[string(lang)]; ok && s != "" {
		return s
	}
	return l[string(query.English)]
}

// FieldSpec is one labeled line of a templated answer.
type FieldSpec struct {
	// Keys are metadata keys tried in order; the first non-empty value is shown.
	Keys  []string  `yaml:"keys"`
	Label Localized `yaml:"label"`
}

// TemplateDescriptor describes how one record type is rendered.
type TemplateDescriptor struct {
	Heading Localized   `yaml:"heading"`
	Fields  []FieldSpec `yaml:"fields"`
	// LinkFirst puts the document link directly under the heading.
	LinkFirst bool      `yaml:"link_first"`
	LinkLabel Localized `yaml:"link_label"`
}

// TemplateSet maps record types to descriptors.
type TemplateSet struct {
	Closing   Localized                                 `yaml:"closing"`
	Untitled  Localized                                 `yaml:"untitled"`
	LinkLabel Localized                                 `yaml:"link_label"`
	Generic   TemplateDescriptor                        `yaml:"generic"`
	Types     map[records.RecordType]TemplateDescriptor `yaml:"types"`
}

// DefaultTemplates returns the embedded template set.
func DefaultTemplates() *TemplateSet {
	set, err := ParseTemplates(defaultTemplatesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded templates are invalid: %v", err))
	}
	return set
}

// LoadTemplates reads a template set from a YAML file.
func LoadTemplates(path string) (*TemplateSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates file: %w", err)
	}
	return ParseTemplates(data)
}

// ParseTemplates decodes and validates a template set.
func ParseTemplates(data []byte) (*TemplateSet, error) {
	var set TemplateSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	if set.Generic.Heading.get(query.English) == "" {
		return nil, fmt.Errorf("templates: generic.heading.en is required")
	}
	for t := range set.Types {
		if records.ParseRecordType(string(t)) != t {
			return nil, fmt.Errorf("templates: unknown record type %q", t)
		}
	}
	return &set, nil
}

// Descriptor returns the descriptor for t, or the generic one.
func (s *TemplateSet) Descriptor(t records.RecordType) TemplateDescriptor {
	if d, ok := s.Types[t]; ok {
		return d
	}
	return s.Generic
}

// Render builds the templated answer for one record. Only fields present on
// the record are printed, and the closing invitation is always appended.
func (s *TemplateSet) Render(c records.Candidate, lang query.Language) string {
	d := s.Descriptor(c.Type())

	lines := make([]string, 0, len(d.Fields)+4)
	if title := c.Title(); title != "" {
		lines = append(lines, strings.ReplaceAll(d.Heading.get(lang), "{title}", title))
	} else {
		lines = append(lines, s.Untitled.get(lang))
	}

	link := c.BestLink()
	linkLabel := d.LinkLabel.get(lang)
	if linkLabel == "" {
		linkLabel = s.LinkLabel.get(lang)
	}
	linkLine := ""
	if link != "" {
		linkLine = fmt.Sprintf("- **%s:** %s", linkLabel, link)
	}

	if d.LinkFirst && linkLine != "" {
		lines = append(lines, linkLine)
	}
	for _, f := range d.Fields {
		value := c.Field(f.Keys...)
		if value == "" {
			continue
		}
		if isDateField(f.Keys) {
			value, _ = NormalizeDate(value)
		}
		lines = append(lines, fmt.Sprintf("- **%s:** %s", f.Label.get(lang), value))
	}
	if !d.LinkFirst && linkLine != "" {
		lines = append(lines, linkLine)
	}

	lines = append(lines, "", s.Closing.get(lang))
	return strings.Join(lines, "\n")
}

func isDateField(keys []string) bool {
	for _, k := range keys {
		if k == "date" || k == "display_date" {
			return true
		}
	}
	return false
}
