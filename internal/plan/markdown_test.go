package plan

import (
	"strings"
	"testing"
)

func TestParseMarkdownPlan(t *testing.T) {
	markdown := `# Plan: Photo intake

Sorts camera uploads into the archive and writes a manifest.

## Step 1: Gather photos

**Operation**: copy
**Source**: ./inbox
**Destination**: ./sorted
**Extension**: jpg

## Step 2: Normalize names

**Operation**: rename
**Directory**: ./sorted
**Stem**: photo
**Padding**: 4
**Start**: 10

## Step 3: Write manifest

**Operation**: list
**Directory**: ./sorted
**Mode**: full
**Output**: manifest.csv
**Separator**: ";"
`

	parser := NewMarkdownParser()
	plan, err := parser.Parse(strings.NewReader(markdown))
	if err != nil {
		t.Fatalf("Failed to parse markdown: %v", err)
	}

	if plan.Name != "Photo intake" {
		t.Errorf("Expected plan name 'Photo intake', got %q", plan.Name)
	}
	if plan.Description != "Sorts camera uploads into the archive and writes a manifest." {
		t.Errorf("Unexpected description: %q", plan.Description)
	}
	if len(plan.Steps) != 3 {
		t.Fatalf("Expected 3 steps, got %d", len(plan.Steps))
	}

	copy := plan.Steps[0]
	if copy.Number != 1 {
		t.Errorf("Expected step number 1, got %d", copy.Number)
	}
	if copy.Name != "Gather photos" {
		t.Errorf("Expected step name 'Gather photos', got %q", copy.Name)
	}
	if copy.Operation != OpCopy {
		t.Errorf("Expected operation copy, got %q", copy.Operation)
	}
	if copy.Source != "./inbox" {
		t.Errorf("Expected source './inbox', got %q", copy.Source)
	}
	if copy.Destination != "./sorted" {
		t.Errorf("Expected destination './sorted', got %q", copy.Destination)
	}
	if copy.Extension == nil || *copy.Extension != "jpg" {
		t.Errorf("Expected extension 'jpg', got %v", copy.Extension)
	}

	rename := plan.Steps[1]
	if rename.Operation != OpRename {
		t.Errorf("Expected operation rename, got %q", rename.Operation)
	}
	if rename.Directory != "./sorted" {
		t.Errorf("Expected directory './sorted', got %q", rename.Directory)
	}
	if rename.Stem != "photo" {
		t.Errorf("Expected stem 'photo', got %q", rename.Stem)
	}
	if rename.Padding != 4 {
		t.Errorf("Expected padding 4, got %d", rename.Padding)
	}
	if rename.Start != 10 {
		t.Errorf("Expected start 10, got %d", rename.Start)
	}

	list := plan.Steps[2]
	if list.Operation != OpList {
		t.Errorf("Expected operation list, got %q", list.Operation)
	}
	if list.Mode != "full" {
		t.Errorf("Expected mode 'full', got %q", list.Mode)
	}
	if list.Output != "manifest.csv" {
		t.Errorf("Expected output 'manifest.csv', got %q", list.Output)
	}
	if list.Separator != ";" {
		t.Errorf("Expected separator ';', got %q", list.Separator)
	}
}

func TestParseMarkdownStepExtraction(t *testing.T) {
	tests := []struct {
		name          string
		markdown      string
		expectedCount int
		expectedNames []string
	}{
		{
			name: "multiple steps",
			markdown: `# Test Plan

## Step 1: First Step

**Operation**: copy
**Source**: ./a
**Destination**: ./b

## Step 2: Second Step

**Operation**: list
**Directory**: ./b
`,
			expectedCount: 2,
			expectedNames: []string{"First Step", "Second Step"},
		},
		{
			name: "no steps",
			markdown: `# Empty Plan

Just some text without any step headings.
`,
			expectedCount: 0,
		},
		{
			name: "non-step sections skipped",
			markdown: `# Plan

## Step 1: Real Step

**Operation**: list
**Directory**: ./x

## Notes

This section is not a step.

## Step 2: Another Step

**Operation**: list
**Directory**: ./y
`,
			expectedCount: 2,
			expectedNames: []string{"Real Step", "Another Step"},
		},
		{
			name: "subsections stay within their step",
			markdown: `# Plan

## Step 1: Deep Step

**Operation**: copy
**Source**: ./a
**Destination**: ./b

### Why

Because the inbox overflows.
`,
			expectedCount: 1,
			expectedNames: []string{"Deep Step"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewMarkdownParser()
			plan, err := parser.Parse(strings.NewReader(tt.markdown))
			if err != nil {
				t.Fatalf("Failed to parse markdown: %v", err)
			}

			if len(plan.Steps) != tt.expectedCount {
				t.Fatalf("Expected %d steps, got %d", tt.expectedCount, len(plan.Steps))
			}

			for i, name := range tt.expectedNames {
				if plan.Steps[i].Name != name {
					t.Errorf("Step %d name = %q, want %q", i, plan.Steps[i].Name, name)
				}
			}
		})
	}
}

func TestParseMarkdownCodeBlocksIgnored(t *testing.T) {
	markdown := "# Plan\n\n" +
		"## Step 1: Real Step\n\n" +
		"**Operation**: copy\n" +
		"**Source**: ./a\n" +
		"**Destination**: ./b\n\n" +
		"Example plan snippet:\n\n" +
		"```markdown\n" +
		"## Step 9: Fake Step\n" +
		"**Operation**: rename\n" +
		"```\n"

	parser := NewMarkdownParser()
	plan, err := parser.Parse(strings.NewReader(markdown))
	if err != nil {
		t.Fatalf("Failed to parse markdown: %v", err)
	}

	if len(plan.Steps) != 1 {
		t.Fatalf("Expected 1 step, got %d (code block leaked)", len(plan.Steps))
	}
	if plan.Steps[0].Operation != OpCopy {
		t.Errorf("Operation = %q, want copy (code block overrode field)", plan.Steps[0].Operation)
	}
}

func TestParseMarkdownQuotedValues(t *testing.T) {
	markdown := "# Plan\n\n" +
		"## Step 1: Manifest\n\n" +
		"**Operation**: list\n" +
		"**Directory**: ./files\n" +
		"**Output**: `out list.csv`\n" +
		"**Separator**: \"\t\"\n"

	parser := NewMarkdownParser()
	plan, err := parser.Parse(strings.NewReader(markdown))
	if err != nil {
		t.Fatalf("Failed to parse markdown: %v", err)
	}

	step := plan.Steps[0]
	if step.Output != "out list.csv" {
		t.Errorf("Output = %q, want %q", step.Output, "out list.csv")
	}
	if step.Separator != "\t" {
		t.Errorf("Separator = %q, want tab", step.Separator)
	}
}

func TestParseMarkdownExtensionForms(t *testing.T) {
	// Absent extension means copy everything
	noFilter := `# Plan

## Step 1: Copy all

**Operation**: copy
**Source**: ./a
**Destination**: ./b
`
	parser := NewMarkdownParser()
	plan, err := parser.Parse(strings.NewReader(noFilter))
	if err != nil {
		t.Fatalf("Failed to parse markdown: %v", err)
	}
	if plan.Steps[0].Extension != nil {
		t.Errorf("Extension = %v, want nil when absent", *plan.Steps[0].Extension)
	}

	// Explicit "" means only extensionless files
	emptyFilter := `# Plan

## Step 1: Copy bare

**Operation**: copy
**Source**: ./a
**Destination**: ./b
**Extension**: ""
`
	plan, err = parser.Parse(strings.NewReader(emptyFilter))
	if err != nil {
		t.Fatalf("Failed to parse markdown: %v", err)
	}
	if plan.Steps[0].Extension == nil || *plan.Steps[0].Extension != "" {
		t.Errorf("Extension = %v, want pointer to empty string", plan.Steps[0].Extension)
	}
}

func TestParseMarkdownInvalidNumericFields(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
	}{
		{
			name: "bad padding",
			markdown: `# Plan

## Step 1: Rename

**Operation**: rename
**Directory**: ./x
**Stem**: img
**Padding**: wide
`,
		},
		{
			name: "bad start",
			markdown: `# Plan

## Step 1: Rename

**Operation**: rename
**Directory**: ./x
**Stem**: img
**Start**: ten
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewMarkdownParser()
			_, err := parser.Parse(strings.NewReader(tt.markdown))
			if err == nil {
				t.Error("Expected error for invalid numeric field, got nil")
			}
		})
	}
}

func TestParseMarkdownFrontmatter(t *testing.T) {
	markdown := `---
drover:
  default_padding: 3
  default_separator: ";"
  default_list_mode: full
---
# Plan: Archive

## Step 1: Manifest

**Operation**: list
**Directory**: ./archive
`

	parser := NewMarkdownParser()
	plan, err := parser.Parse(strings.NewReader(markdown))
	if err != nil {
		t.Fatalf("Failed to parse markdown: %v", err)
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
	if plan.Name != "Archive" {
		t.Errorf("Name = %q, want 'Archive'", plan.Name)
	}
	if len(plan.Steps) != 1 {
		t.Errorf("Expected 1 step, got %d", len(plan.Steps))
	}
}

func TestParseMarkdownFrontmatterNameAndDescription(t *testing.T) {
	markdown := `---
name: nightly-import
description: Sorts the scanner drop folder.
---
# Plan: Some Other Title

Body text that would otherwise become the description.

## Step 1: Manifest

**Operation**: list
**Directory**: ./archive
`

	parser := NewMarkdownParser()
	plan, err := parser.Parse(strings.NewReader(markdown))
	if err != nil {
		t.Fatalf("Failed to parse markdown: %v", err)
	}

	if plan.Name != "nightly-import" {
		t.Errorf("Name = %q, want frontmatter name 'nightly-import'", plan.Name)
	}
	if plan.Description != "Sorts the scanner drop folder." {
		t.Errorf("Description = %q, want frontmatter description", plan.Description)
	}
}

func TestParseMarkdownFrontmatterNameOnly(t *testing.T) {
	markdown := `---
name: nightly-import
---
# Plan: Ignored Title

Free text under the title.

## Step 1: Manifest

**Operation**: list
**Directory**: ./archive
`

	parser := NewMarkdownParser()
	plan, err := parser.Parse(strings.NewReader(markdown))
	if err != nil {
		t.Fatalf("Failed to parse markdown: %v", err)
	}

	if plan.Name != "nightly-import" {
		t.Errorf("Name = %q, want 'nightly-import'", plan.Name)
	}
	// With no frontmatter description, the under-title text still applies
	if plan.Description != "Free text under the title." {
		t.Errorf("Description = %q, want under-title text", plan.Description)
	}
}

func TestParseMarkdownFrontmatterInvalid(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
	}{
		{
			name: "bad list mode",
			markdown: `---
drover:
  default_list_mode: verbose
---
# Plan

## Step 1: List

**Operation**: list
**Directory**: ./x
`,
		},
		{
			name: "negative padding",
			markdown: `---
drover:
  default_padding: -2
---
# Plan

## Step 1: List

**Operation**: list
**Directory**: ./x
`,
		},
		{
			name: "malformed yaml",
			markdown: `---
drover: [unclosed
---
# Plan
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewMarkdownParser()
			_, err := parser.Parse(strings.NewReader(tt.markdown))
			if err == nil {
				t.Error("Expected frontmatter error, got nil")
			}
		})
	}
}

func TestParseMarkdownWithoutFrontmatter(t *testing.T) {
	markdown := `# Plan

## Step 1: List

**Operation**: list
**Directory**: ./x
`

	parser := NewMarkdownParser()
	plan, err := parser.Parse(strings.NewReader(markdown))
	if err != nil {
		t.Fatalf("Failed to parse markdown: %v", err)
	}

	if plan.Defaults.Padding != 0 || plan.Defaults.Separator != "" || plan.Defaults.ListMode != "" {
		t.Errorf("Defaults = %+v, want zero values", plan.Defaults)
	}
}

func TestExtractFrontmatter(t *testing.T) {
	content := []byte("---\nkey: value\n---\nbody text\n")
	body, frontmatter := extractFrontmatter(content)

	if string(frontmatter) != "key: value" {
		t.Errorf("Frontmatter = %q, want %q", frontmatter, "key: value")
	}
	if string(body) != "body text\n" {
		t.Errorf("Body = %q, want %q", body, "body text\n")
	}

	// No frontmatter
	content = []byte("just text\n")
	body, frontmatter = extractFrontmatter(content)
	if frontmatter != nil {
		t.Errorf("Frontmatter = %q, want nil", frontmatter)
	}
	if string(body) != "just text\n" {
		t.Errorf("Body = %q, want unchanged content", body)
	}

	// Unclosed frontmatter is treated as body
	content = []byte("---\nkey: value\nno closing\n")
	_, frontmatter = extractFrontmatter(content)
	if frontmatter != nil {
		t.Errorf("Frontmatter = %q, want nil for unclosed delimiter", frontmatter)
	}
}

func TestCleanValue(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"  padded  ", "padded"},
		{"`backticked`", "backticked"},
		{`"quoted"`, "quoted"},
		{`""`, ""},
		{`";"`, ";"},
		{`"one`, `"one`},
		{"`", "`"},
	}

	for _, tt := range tests {
		if got := cleanValue(tt.input); got != tt.want {
			t.Errorf("cleanValue(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
