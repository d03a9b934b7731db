package main

import (
	"strings"
	"testing"

	"flowbridge/internal/errors"
	"flowbridge/internal/flow"
)

func TestFormatResponse_JSON(t *testing.T) {
	resp := &DefinitionResponseCLI{
		Found:      true,
		Definition: &flow.Definition{File: "/p/a.js", Line: 3, Column: 7},
	}

	result, err := FormatResponse(resp, FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{`"found": true`, `"file": "/p/a.js"`, `"line": 3`, `"column": 7`} {
		if !strings.Contains(result, want) {
			t.Errorf("JSON output missing %s:\n%s", want, result)
		}
	}
}

func TestFormatResponse_YAML(t *testing.T) {
	resp := &TypeResponseCLI{Found: true, Type: "number"}

	result, err := FormatResponse(resp, FormatYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "found: true\ntype: number" {
		t.Errorf("unexpected YAML:\n%s", result)
	}
}

func TestFormatResponse_UnsupportedFormat(t *testing.T) {
	_, err := FormatResponse(&TypeResponseCLI{}, "xml")
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("error should mention unsupported format, got: %v", err)
	}
}

func TestFormatHuman_Definition(t *testing.T) {
	tests := []struct {
		name string
		resp *DefinitionResponseCLI
		want string
	}{
		{"not found", &DefinitionResponseCLI{}, "No definition found"},
		{
			"one-based",
			&DefinitionResponseCLI{Found: true, Definition: &flow.Definition{File: "/p/a.js", Line: 0, Column: 4}},
			"/p/a.js:1:5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatHuman(tt.resp)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatHuman_Diagnostics(t *testing.T) {
	resp := &DiagnosticsResponseCLI{
		Files: []FileDiagnostics{
			{
				File: "/p/a.js",
				Diagnostics: []flow.Diagnostic{
					{Level: "error", Message: []flow.MessagePart{
						{Descr: "string", Path: "/p/a.js", Line: 2, Start: 5},
						{Descr: "This type is incompatible with number"},
					}},
					{Level: "warning", Message: []flow.MessagePart{{Descr: "unused suppression"}}},
				},
			},
			{File: "/p/b.js", Diagnostics: []flow.Diagnostic{}},
		},
		Total: 2,
	}

	got, err := formatHuman(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "/p/a.js:2:5: error: string This type is incompatible with number\n" +
		"/p/a.js: warning: unused suppression\n" +
		"Found 2 errors"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}

	clean, _ := formatHuman(&DiagnosticsResponseCLI{})
	if clean != "No errors" {
		t.Errorf("empty diagnostics = %q", clean)
	}
}

func TestFormatHuman_Autocomplete(t *testing.T) {
	resp := &AutocompleteResponseCLI{Completions: []flow.Completion{
		{Text: "a", Type: "number"},
		{Text: "abc", Type: "string"},
	}}

	got, _ := formatHuman(resp)
	want := "a    number\nabc  string"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	empty, _ := formatHuman(&AutocompleteResponseCLI{})
	if empty != "No completions" {
		t.Errorf("empty completions = %q", empty)
	}
}

func TestFormatHuman_Type(t *testing.T) {
	if got, _ := formatHuman(&TypeResponseCLI{}); got != "(unknown)" {
		t.Errorf("missing type = %q", got)
	}
	if got, _ := formatHuman(&TypeResponseCLI{Found: true, Type: "?string"}); got != "?string" {
		t.Errorf("type = %q", got)
	}
}

func TestFormatHuman_Doctor(t *testing.T) {
	resp := &DoctorResponseCLI{
		Healthy: false,
		Checks: []DoctorCheck{
			{Name: "config", Status: "pass", Message: "defaults"},
			{
				Name:    "binary",
				Status:  "fail",
				Message: "flow binary not found",
				SuggestedFixes: []errors.FixAction{
					{Type: errors.RunCommand, Command: "npm install --save-dev flow-bin", Description: "Install flow-bin"},
				},
			},
		},
	}

	got, _ := formatHuman(resp)
	for _, want := range []string{
		"✗ Issues found",
		"✓ config: defaults",
		"✗ binary: flow binary not found",
		"    - Install flow-bin",
		"      $ npm install --save-dev flow-bin",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("doctor output missing %q:\n%s", want, got)
		}
	}
}

func TestFormatHuman_UnknownFallsBackToJSON(t *testing.T) {
	got, err := formatHuman(map[string]int{"n": 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, `"n": 1`) {
		t.Errorf("expected JSON fallback, got %q", got)
	}
}
