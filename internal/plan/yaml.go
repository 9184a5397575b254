package plan

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLParser parses YAML plan files
type YAMLParser struct{}

func NewYAMLParser() *YAMLParser {
	return &YAMLParser{}
}

func (p *YAMLParser) Parse(r io.Reader) (*Plan, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	type yamlStep struct {
		Number      int     `yaml:"number"`
		Name        string  `yaml:"name"`
		Operation   string  `yaml:"operation"`
		Source      string  `yaml:"source"`
		Destination string  `yaml:"destination"`
		Extension   *string `yaml:"extension"`
		Directory   string  `yaml:"directory"`
		Stem        string  `yaml:"stem"`
		Padding     int     `yaml:"padding"`
		Start       int     `yaml:"start"`
		Mode        string  `yaml:"mode"`
		Output      string  `yaml:"output"`
		Separator   string  `yaml:"separator"`
	}
	type yamlDefaults struct {
		Padding   int    `yaml:"padding"`
		Separator string `yaml:"separator"`
		ListMode  string `yaml:"list_mode"`
	}
	type yamlPlan struct {
		Name        string       `yaml:"name"`
		Description string       `yaml:"description"`
		Defaults    yamlDefaults `yaml:"defaults"`
		Steps       []yamlStep   `yaml:"steps"`
	}

	var yp yamlPlan
	if err := yaml.Unmarshal(data, &yp); err != nil {
		return nil, fmt.Errorf("failed to parse YAML plan: %w", err)
	}

	plan := &Plan{
		Name:        yp.Name,
		Description: yp.Description,
		Defaults: Defaults{
			Padding:   yp.Defaults.Padding,
			Separator: yp.Defaults.Separator,
			ListMode:  strings.ToLower(yp.Defaults.ListMode),
		},
	}

	for i, ys := range yp.Steps {
		number := ys.Number
		if number == 0 {
			// Steps without explicit numbers take their list position
			number = i + 1
		}

		plan.Steps = append(plan.Steps, Step{
			Number:      number,
			Name:        ys.Name,
			Operation:   strings.ToLower(strings.TrimSpace(ys.Operation)),
			Source:      ys.Source,
			Destination: ys.Destination,
			Extension:   ys.Extension,
			Directory:   ys.Directory,
			Stem:        ys.Stem,
			Padding:     ys.Padding,
			Start:       ys.Start,
			Mode:        strings.ToLower(strings.TrimSpace(ys.Mode)),
			Output:      ys.Output,
			Separator:   ys.Separator,
		})
	}

	return plan, nil
}
