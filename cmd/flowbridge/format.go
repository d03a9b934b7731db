package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"flowbridge/internal/flow"
	"flowbridge/internal/version"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
	FormatYAML  OutputFormat = "yaml"
)

// DefinitionResponseCLI is the output of `def`
type DefinitionResponseCLI struct {
	Found      bool             `json:"found" yaml:"found"`
	Definition *flow.Definition `json:"definition" yaml:"definition"`
}

// FileDiagnostics groups the diagnostics of one file
type FileDiagnostics struct {
	File        string            `json:"file" yaml:"file"`
	Diagnostics []flow.Diagnostic `json:"diagnostics" yaml:"diagnostics"`
}

// DiagnosticsResponseCLI is the output of `diagnostics`
type DiagnosticsResponseCLI struct {
	Files []FileDiagnostics `json:"files" yaml:"files"`
	Total int               `json:"total" yaml:"total"`
}

// AutocompleteResponseCLI is the output of `autocomplete`
type AutocompleteResponseCLI struct {
	Completions []flow.Completion `json:"completions" yaml:"completions"`
}

// TypeResponseCLI is the output of `type-at`
type TypeResponseCLI struct {
	Found bool   `json:"found" yaml:"found"`
	Type  string `json:"type,omitempty" yaml:"type,omitempty"`
}

// VersionResponseCLI is the output of `version`
type VersionResponseCLI struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildDate string `json:"buildDate" yaml:"buildDate"`
}

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatYAML:
		return formatYAML(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatYAML(resp interface{}) (string, error) {
	data, err := yaml.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *DefinitionResponseCLI:
		return formatDefinitionHuman(v), nil
	case *DiagnosticsResponseCLI:
		return formatDiagnosticsHuman(v), nil
	case *AutocompleteResponseCLI:
		return formatAutocompleteHuman(v), nil
	case *TypeResponseCLI:
		return formatTypeHuman(v), nil
	case *DoctorResponseCLI:
		return formatDoctorHuman(v), nil
	case *VersionResponseCLI:
		return version.Full(), nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

// positions are shown 1-based, as editors do
func formatDefinitionHuman(resp *DefinitionResponseCLI) string {
	if !resp.Found || resp.Definition == nil {
		return "No definition found"
	}
	d := resp.Definition
	return fmt.Sprintf("%s:%d:%d", d.File, d.Line+1, d.Column+1)
}

func formatDiagnosticsHuman(resp *DiagnosticsResponseCLI) string {
	var b strings.Builder
	for _, f := range resp.Files {
		for _, d := range f.Diagnostics {
			loc := f.File
			if part, ok := d.Location(); ok {
				loc = fmt.Sprintf("%s:%d:%d", part.Path, part.Line, part.Start)
			}
			b.WriteString(fmt.Sprintf("%s: %s: %s\n", loc, d.Level, d.Text()))
		}
	}
	switch resp.Total {
	case 0:
		b.WriteString("No errors")
	case 1:
		b.WriteString("Found 1 error")
	default:
		b.WriteString(fmt.Sprintf("Found %d errors", resp.Total))
	}
	return b.String()
}

func formatAutocompleteHuman(resp *AutocompleteResponseCLI) string {
	if len(resp.Completions) == 0 {
		return "No completions"
	}
	width := 0
	for _, c := range resp.Completions {
		if len(c.Text) > width {
			width = len(c.Text)
		}
	}
	lines := make([]string, 0, len(resp.Completions))
	for _, c := range resp.Completions {
		lines = append(lines, fmt.Sprintf("%-*s  %s", width, c.Text, c.Type))
	}
	return strings.Join(lines, "\n")
}

func formatTypeHuman(resp *TypeResponseCLI) string {
	if !resp.Found {
		return "(unknown)"
	}
	return resp.Type
}

// formatDoctorHuman formats a DoctorResponseCLI in human-readable format
func formatDoctorHuman(resp *DoctorResponseCLI) string {
	var b strings.Builder

	b.WriteString("flowbridge doctor\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	healthIcon := "✓"
	healthText := "All checks passed"
	if !resp.Healthy {
		healthIcon = "✗"
		healthText = "Issues found"
	}
	b.WriteString(fmt.Sprintf("%s %s\n\n", healthIcon, healthText))

	for _, check := range resp.Checks {
		var icon string
		switch check.Status {
		case "pass":
			icon = "✓"
		case "warn":
			icon = "⚠"
		case "fail":
			icon = "✗"
		default:
			icon = "?"
		}

		b.WriteString(fmt.Sprintf("%s %s: %s\n", icon, check.Name, check.Message))

		if len(check.SuggestedFixes) > 0 {
			b.WriteString("  Suggested fixes:\n")
			for _, fix := range check.SuggestedFixes {
				b.WriteString(fmt.Sprintf("    - %s\n", fix.Description))
				if fix.Command != "" {
					b.WriteString(fmt.Sprintf("      $ %s\n", fix.Command))
				}
			}
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func versionResponse() *VersionResponseCLI {
	return &VersionResponseCLI{
		Version:   version.Version,
		Commit:    version.Commit,
		BuildDate: version.BuildDate,
	}
}
