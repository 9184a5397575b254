package plan

import (
	"strings"
	"testing"
)

func TestParseYAMLPlan(t *testing.T) {
	yamlContent := `name: Photo intake
description: Sorts camera uploads.
defaults:
  padding: 3
  separator: ";"
  list_mode: full
steps:
  - name: Gather photos
    operation: copy
    source: ./inbox
    destination: ./sorted
    extension: jpg
  - name: Normalize names
    operation: rename
    directory: ./sorted
    stem: photo
    padding: 4
    start: 10
  - name: Write manifest
    operation: list
    directory: ./sorted
    mode: full
    output: manifest.csv
    separator: ";"
`

	parser := NewYAMLParser()
	plan, err := parser.Parse(strings.NewReader(yamlContent))
	if err != nil {
		t.Fatalf("Failed to parse YAML: %v", err)
	}

	if plan.Name != "Photo intake" {
		t.Errorf("Name = %q, want 'Photo intake'", plan.Name)
	}
	if plan.Description != "Sorts camera uploads." {
		t.Errorf("Description = %q", plan.Description)
	}
	if plan.Defaults.Padding != 3 {
		t.Errorf("Defaults.Padding = %d, want 3", plan.Defaults.Padding)
	}
	if plan.Defaults.Separator != ";" {
		t.Errorf("Defaults.Separator = %q, want ';'", plan.Defaults.Separator)
	}
	if plan.Defaults.ListMode != "full" {
		t.Errorf("Defaults.ListMode = %q, want 'full'", plan.Defaults.ListMode)
	}

	if len(plan.Steps) != 3 {
		t.Fatalf("Expected 3 steps, got %d", len(plan.Steps))
	}

	// Steps without explicit numbers take their list position
	for i, step := range plan.Steps {
		if step.Number != i+1 {
			t.Errorf("Step %d number = %d, want %d", i, step.Number, i+1)
		}
	}

	copy := plan.Steps[0]
	if copy.Operation != OpCopy || copy.Source != "./inbox" || copy.Destination != "./sorted" {
		t.Errorf("Copy step = %+v", copy)
	}
	if copy.Extension == nil || *copy.Extension != "jpg" {
		t.Errorf("Extension = %v, want 'jpg'", copy.Extension)
	}

	rename := plan.Steps[1]
	if rename.Operation != OpRename || rename.Stem != "photo" || rename.Padding != 4 || rename.Start != 10 {
		t.Errorf("Rename step = %+v", rename)
	}

	list := plan.Steps[2]
	if list.Operation != OpList || list.Mode != "full" || list.Output != "manifest.csv" || list.Separator != ";" {
		t.Errorf("List step = %+v", list)
	}
}

func TestParseYAMLExplicitNumbers(t *testing.T) {
	yamlContent := `name: Split part two
steps:
  - number: 4
    name: Late step
    operation: list
    directory: ./x
  - number: 5
    name: Later step
    operation: list
    directory: ./y
`

	parser := NewYAMLParser()
	plan, err := parser.Parse(strings.NewReader(yamlContent))
	if err != nil {
		t.Fatalf("Failed to parse YAML: %v", err)
	}

	if plan.Steps[0].Number != 4 {
		t.Errorf("Step number = %d, want 4", plan.Steps[0].Number)
	}
	if plan.Steps[1].Number != 5 {
		t.Errorf("Step number = %d, want 5", plan.Steps[1].Number)
	}
}

func TestParseYAMLExtensionForms(t *testing.T) {
	yamlContent := `steps:
  - operation: copy
    source: ./a
    destination: ./b
  - operation: copy
    source: ./a
    destination: ./b
    extension: ""
  - operation: copy
    source: ./a
    destination: ./b
    extension: txt
`

	parser := NewYAMLParser()
	plan, err := parser.Parse(strings.NewReader(yamlContent))
	if err != nil {
		t.Fatalf("Failed to parse YAML: %v", err)
	}

	if plan.Steps[0].Extension != nil {
		t.Errorf("Absent extension should be nil, got %q", *plan.Steps[0].Extension)
	}
	if plan.Steps[1].Extension == nil || *plan.Steps[1].Extension != "" {
		t.Errorf("Empty extension should be pointer to empty string, got %v", plan.Steps[1].Extension)
	}
	if plan.Steps[2].Extension == nil || *plan.Steps[2].Extension != "txt" {
		t.Errorf("Extension = %v, want 'txt'", plan.Steps[2].Extension)
	}
}

func TestParseYAMLOperationNormalized(t *testing.T) {
	yamlContent := `steps:
  - operation: Copy
    source: ./a
    destination: ./b
  - operation: " LIST "
    directory: ./b
`

	parser := NewYAMLParser()
	plan, err := parser.Parse(strings.NewReader(yamlContent))
	if err != nil {
		t.Fatalf("Failed to parse YAML: %v", err)
	}

	if plan.Steps[0].Operation != OpCopy {
		t.Errorf("Operation = %q, want copy", plan.Steps[0].Operation)
	}
	if plan.Steps[1].Operation != OpList {
		t.Errorf("Operation = %q, want list", plan.Steps[1].Operation)
	}
}

func TestParseYAMLInvalid(t *testing.T) {
	parser := NewYAMLParser()
	_, err := parser.Parse(strings.NewReader("steps: [unclosed"))
	if err == nil {
		t.Error("Expected error for invalid YAML, got nil")
	}
}
