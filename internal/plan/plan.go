// Package plan defines drover plan files and their parsers. A plan is an
// ordered list of steps, each invoking one batch operation (copy, rename,
// list) with its arguments. Plans are written as Markdown or YAML.
package plan

import "fmt"

// Operation names accepted in plan steps.
const (
	OpCopy   = "copy"
	OpRename = "rename"
	OpList   = "list"
)

// Plan represents a parsed plan file
type Plan struct {
	// Name is the plan title
	Name string

	// Description is optional free text shown before the first step
	Description string

	// Defaults holds plan-wide defaults from frontmatter
	Defaults Defaults

	// Steps are executed in order
	Steps []Step

	// FilePath is the absolute path the plan was loaded from
	FilePath string
}

// Defaults holds plan-wide defaults that apply when a step leaves the
// corresponding field unset.
type Defaults struct {
	// Padding is the zero-pad width for rename steps
	Padding int

	// Separator is the field separator for list steps
	Separator string

	// ListMode is the manifest mode for list steps
	ListMode string
}

// Step represents one operation in a plan
type Step struct {
	// Number is the step's position as written in the plan heading
	Number int

	// Name is the step title
	Name string

	// Operation is one of copy, rename, list
	Operation string

	// Source and Destination are the copy operation directories
	Source      string
	Destination string

	// Extension filters copy to one extension. Nil means copy everything,
	// an empty string matches only extensionless files.
	Extension *string

	// Directory is the rename and list operation target
	Directory string

	// Stem is the rename base name
	Stem string

	// Padding is the rename zero-pad width (0 = plan or config default)
	Padding int

	// Start is the first rename sequence number
	Start int

	// Mode is the list manifest mode (empty = plan or config default)
	Mode string

	// Output is the list manifest path (empty = default)
	Output string

	// Separator is the list field separator (empty = plan or config default)
	Separator string

	// SourceFile tracks which plan file the step came from in merged plans
	SourceFile string
}

// ValidationError describes a single problem found in a plan step.
type ValidationError struct {
	// Step is the step number, or 0 for plan-level problems
	Step int

	// Field is the offending field name, if one applies
	Field string

	// Message describes the problem
	Message string
}

func (e *ValidationError) Error() string {
	if e.Step == 0 {
		return fmt.Sprintf("plan: %s", e.Message)
	}
	if e.Field == "" {
		return fmt.Sprintf("step %d: %s", e.Step, e.Message)
	}
	return fmt.Sprintf("step %d: %s: %s", e.Step, e.Field, e.Message)
}

// Validate checks the plan and returns the first problem found, or nil.
func (p *Plan) Validate() error {
	errs := p.ValidateAll()
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}

// ValidateAll checks the plan and returns every problem found. Used by
// drover validate to report all issues at once.
func (p *Plan) ValidateAll() []error {
	var errs []error

	if len(p.Steps) == 0 {
		errs = append(errs, &ValidationError{Message: "plan has no steps"})
		return errs
	}

	seen := make(map[int]bool)
	duplicates := false
	for i := range p.Steps {
		step := &p.Steps[i]

		if seen[step.Number] {
			errs = append(errs, &ValidationError{
				Step:    step.Number,
				Message: "duplicate step number",
			})
			duplicates = true
		}
		seen[step.Number] = true

		errs = append(errs, validateStep(step)...)
	}

	// Step numbers must form 1..n. Split plan fragments carry their global
	// numbers, so the check applies to the merged plan.
	if !duplicates {
		for n := 1; n <= len(p.Steps); n++ {
			if !seen[n] {
				errs = append(errs, &ValidationError{
					Message: fmt.Sprintf("step numbers must run 1..%d (missing step %d)", len(p.Steps), n),
				})
				break
			}
		}
	}

	return errs
}

// validateStep checks one step's operation and required fields
func validateStep(step *Step) []error {
	var errs []error

	switch step.Operation {
	case OpCopy:
		if step.Source == "" {
			errs = append(errs, &ValidationError{Step: step.Number, Field: "Source", Message: "required for copy"})
		}
		if step.Destination == "" {
			errs = append(errs, &ValidationError{Step: step.Number, Field: "Destination", Message: "required for copy"})
		}

	case OpRename:
		if step.Directory == "" {
			errs = append(errs, &ValidationError{Step: step.Number, Field: "Directory", Message: "required for rename"})
		}
		if step.Stem == "" {
			errs = append(errs, &ValidationError{Step: step.Number, Field: "Stem", Message: "required for rename"})
		}
		if step.Padding < 0 {
			errs = append(errs, &ValidationError{Step: step.Number, Field: "Padding", Message: "cannot be negative"})
		}
		if step.Start < 0 {
			errs = append(errs, &ValidationError{Step: step.Number, Field: "Start", Message: "cannot be negative"})
		}

	case OpList:
		if step.Directory == "" {
			errs = append(errs, &ValidationError{Step: step.Number, Field: "Directory", Message: "required for list"})
		}
		if step.Mode != "" && step.Mode != "simple" && step.Mode != "full" {
			errs = append(errs, &ValidationError{Step: step.Number, Field: "Mode", Message: fmt.Sprintf("unknown mode %q (must be simple or full)", step.Mode)})
		}

	case "":
		errs = append(errs, &ValidationError{Step: step.Number, Field: "Operation", Message: "required"})

	default:
		errs = append(errs, &ValidationError{Step: step.Number, Field: "Operation", Message: fmt.Sprintf("unknown operation %q (must be copy, rename, or list)", step.Operation)})
	}

	return errs
}
