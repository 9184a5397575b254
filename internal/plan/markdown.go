package plan

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// MarkdownParser parses Markdown plan files. Steps are level 2 headings of
// the form "## Step N: name" followed by **Field**: value lines.
type MarkdownParser struct {
	markdown goldmark.Markdown
}

func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{
		markdown: goldmark.New(),
	}
}

// stepHeadingRegex matches step headings like "Step 3: Write manifest"
var stepHeadingRegex = regexp.MustCompile(`^Step\s+(\d+):\s+(.+)$`)

// planTitleRegex strips the optional "Plan:" prefix from the document title
var planTitleRegex = regexp.MustCompile(`^Plan:\s*(.+)$`)

func (p *MarkdownParser) Parse(r io.Reader) (*Plan, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	plan := &Plan{}
	content, frontmatter := extractFrontmatter(content)
	if frontmatter != nil {
		if err := parseDroverConfig(frontmatter, plan); err != nil {
			return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
	}

	doc := p.markdown.Parser().Parse(text.NewReader(content))

	sections := collectSections(doc, content)
	if err := p.buildPlan(plan, sections, content); err != nil {
		return nil, err
	}

	return plan, nil
}

// section is a heading plus the byte range of the content below it
type section struct {
	level int
	text  string
	// body spans from the end of the heading line to the start of the
	// next heading line (or end of document)
	bodyStart int
	bodyEnd   int
}

// collectSections walks the AST and records every heading with the source
// range of its body. Fenced code blocks never produce heading nodes, so a
// "## Step" line inside a code example is not mistaken for a step.
func collectSections(doc ast.Node, source []byte) []section {
	var sections []section

	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		lines := heading.Lines()
		if lines.Len() == 0 {
			return ast.WalkContinue, nil
		}
		sections = append(sections, section{
			level:     heading.Level,
			text:      extractText(heading, source),
			bodyStart: lines.At(lines.Len() - 1).Stop,
		})
		return ast.WalkContinue, nil
	})

	// A section's body runs to the next level 1 or 2 heading, so ###
	// subsections stay inside their step
	for i := range sections {
		end := len(source)
		for j := i + 1; j < len(sections); j++ {
			if sections[j].level <= 2 {
				end = lineStartBefore(source, sections[j].bodyStart)
				break
			}
		}
		sections[i].bodyEnd = end
	}

	return sections
}

// lineStartBefore returns the offset of the start of the line containing pos
func lineStartBefore(source []byte, pos int) int {
	if pos > len(source) {
		pos = len(source)
	}
	idx := bytes.LastIndexByte(source[:pos], '\n')
	return idx + 1
}

// buildPlan turns heading sections into the plan name, description and steps
func (p *MarkdownParser) buildPlan(plan *Plan, sections []section, source []byte) error {
	for _, sec := range sections {
		if sec.level == 1 {
			if plan.Name == "" {
				title := strings.TrimSpace(sec.text)
				if matches := planTitleRegex.FindStringSubmatch(title); len(matches) == 2 {
					title = strings.TrimSpace(matches[1])
				}
				plan.Name = title
			}

			// Free text under the title becomes the description, up to
			// the first step heading. Frontmatter description wins.
			if plan.Description == "" {
				desc := strings.TrimSpace(string(source[sec.bodyStart:clamp(sec.bodyEnd, len(source))]))
				plan.Description = desc
			}
			continue
		}

		if sec.level != 2 {
			continue
		}

		matches := stepHeadingRegex.FindStringSubmatch(strings.TrimSpace(sec.text))
		if len(matches) != 3 {
			// Not a step heading, skip the section
			continue
		}

		number, err := strconv.Atoi(matches[1])
		if err != nil {
			return fmt.Errorf("invalid step number %q", matches[1])
		}

		step := Step{
			Number: number,
			Name:   strings.TrimSpace(matches[2]),
		}

		body := string(source[sec.bodyStart:clamp(sec.bodyEnd, len(source))])
		if err := parseStepFields(&step, body); err != nil {
			return err
		}

		plan.Steps = append(plan.Steps, step)
	}

	return nil
}

func clamp(v, max int) int {
	if v > max {
		return max
	}
	return v
}

// Field regexes for **Field**: value lines in step bodies
var (
	operationRegex   = regexp.MustCompile(`\*\*Operation\*\*:\s*(.+)`)
	sourceRegex      = regexp.MustCompile(`\*\*Source\*\*:\s*(.+)`)
	destinationRegex = regexp.MustCompile(`\*\*Destination\*\*:\s*(.+)`)
	extensionRegex   = regexp.MustCompile(`\*\*Extension\*\*:\s*(.+)`)
	directoryRegex   = regexp.MustCompile(`\*\*Directory\*\*:\s*(.+)`)
	stemRegex        = regexp.MustCompile(`\*\*Stem\*\*:\s*(.+)`)
	paddingRegex     = regexp.MustCompile(`\*\*Padding\*\*:\s*(.+)`)
	startRegex       = regexp.MustCompile(`\*\*Start\*\*:\s*(.+)`)
	modeRegex        = regexp.MustCompile(`\*\*Mode\*\*:\s*(.+)`)
	outputRegex      = regexp.MustCompile(`\*\*Output\*\*:\s*(.+)`)
	separatorRegex   = regexp.MustCompile(`\*\*Separator\*\*:\s*(.+)`)
)

// parseStepFields extracts **Field**: values from step content
func parseStepFields(step *Step, content string) error {
	// Strip code blocks to prevent extracting fields from examples
	content = removeCodeBlocks(content)

	if matches := operationRegex.FindStringSubmatch(content); len(matches) > 1 {
		step.Operation = strings.ToLower(cleanValue(matches[1]))
	}
	if matches := sourceRegex.FindStringSubmatch(content); len(matches) > 1 {
		step.Source = cleanValue(matches[1])
	}
	if matches := destinationRegex.FindStringSubmatch(content); len(matches) > 1 {
		step.Destination = cleanValue(matches[1])
	}
	if matches := extensionRegex.FindStringSubmatch(content); len(matches) > 1 {
		ext := cleanValue(matches[1])
		step.Extension = &ext
	}
	if matches := directoryRegex.FindStringSubmatch(content); len(matches) > 1 {
		step.Directory = cleanValue(matches[1])
	}
	if matches := stemRegex.FindStringSubmatch(content); len(matches) > 1 {
		step.Stem = cleanValue(matches[1])
	}
	if matches := modeRegex.FindStringSubmatch(content); len(matches) > 1 {
		step.Mode = strings.ToLower(cleanValue(matches[1]))
	}
	if matches := outputRegex.FindStringSubmatch(content); len(matches) > 1 {
		step.Output = cleanValue(matches[1])
	}
	if matches := separatorRegex.FindStringSubmatch(content); len(matches) > 1 {
		step.Separator = cleanValue(matches[1])
	}

	if matches := paddingRegex.FindStringSubmatch(content); len(matches) > 1 {
		value := cleanValue(matches[1])
		padding, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("step %d: invalid Padding %q", step.Number, value)
		}
		step.Padding = padding
	}
	if matches := startRegex.FindStringSubmatch(content); len(matches) > 1 {
		value := cleanValue(matches[1])
		start, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("step %d: invalid Start %q", step.Number, value)
		}
		step.Start = start
	}

	return nil
}

// cleanValue trims a field value and strips one pair of surrounding
// backticks or double quotes, so separators like ";" survive intact and
// "" means an explicit empty value.
func cleanValue(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '`' && last == '`') || (first == '"' && last == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// removeCodeBlocks strips fenced code blocks from content to prevent false
// positives in field extraction.
func removeCodeBlocks(content string) string {
	lines := strings.Split(content, "\n")
	var result strings.Builder
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inCodeBlock = !inCodeBlock
			continue
		}

		if !inCodeBlock {
			result.WriteString(line)
			result.WriteString("\n")
		}
	}

	return result.String()
}

// extractText extracts plain text from an AST node
func extractText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if text, ok := c.(*ast.Text); ok {
			buf.Write(text.Segment.Value(source))
		}
	}
	return buf.String()
}

// extractFrontmatter extracts YAML frontmatter from markdown content
// Returns the content without frontmatter and the frontmatter bytes
func extractFrontmatter(content []byte) ([]byte, []byte) {
	lines := bytes.Split(content, []byte("\n"))

	// Check if starts with ---
	if len(lines) < 3 || !bytes.Equal(bytes.TrimSpace(lines[0]), []byte("---")) {
		return content, nil
	}

	// Find closing ---
	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimSpace(lines[i]), []byte("---")) {
			// Found closing delimiter
			frontmatter := bytes.Join(lines[1:i], []byte("\n"))
			body := bytes.Join(lines[i+1:], []byte("\n"))
			return body, frontmatter
		}
	}

	// No closing delimiter found
	return content, nil
}

// droverConfig represents the optional drover configuration in frontmatter
type droverConfig struct {
	DefaultPadding   *int   `yaml:"default_padding"`
	DefaultSeparator string `yaml:"default_separator"`
	DefaultListMode  string `yaml:"default_list_mode"`
}

// parseDroverConfig parses the plan name, description, and plan-wide
// defaults from frontmatter. Frontmatter name wins over the "# Plan:"
// heading.
func parseDroverConfig(frontmatter []byte, plan *Plan) error {
	var config struct {
		Name        string        `yaml:"name"`
		Description string        `yaml:"description"`
		Drover      *droverConfig `yaml:"drover"`
	}

	if err := yaml.Unmarshal(frontmatter, &config); err != nil {
		return err
	}

	plan.Name = strings.TrimSpace(config.Name)
	plan.Description = strings.TrimSpace(config.Description)

	if config.Drover != nil {
		if config.Drover.DefaultPadding != nil {
			if *config.Drover.DefaultPadding < 0 {
				return fmt.Errorf("drover.default_padding cannot be negative")
			}
			plan.Defaults.Padding = *config.Drover.DefaultPadding
		}
		plan.Defaults.Separator = config.Drover.DefaultSeparator

		mode := strings.ToLower(strings.TrimSpace(config.Drover.DefaultListMode))
		if mode != "" && mode != "simple" && mode != "full" {
			return fmt.Errorf("invalid drover.default_list_mode: %q", mode)
		}
		plan.Defaults.ListMode = mode
	}

	return nil
}
