package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/framegraph/internal/harness"
)

// ScenarioValidation is the validation outcome of one scenario file.
type ScenarioValidation struct {
	File  string `json:"file"`
	Name  string `json:"name,omitempty"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                 `json:"valid"`
	Scenarios []ScenarioValidation `json:"scenarios"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Validate scenario files without running them",
		Long: `Parse and validate scenario files without running any frame.

Checks the YAML structure, op and assertion arguments, resource
references and template names.

Examples:
  framegraph validate testdata/scenarios/global_propagation.yaml
  framegraph validate testdata/scenarios/*.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, files []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	result := ValidationResult{Valid: true, Scenarios: make([]ScenarioValidation, 0, len(files))}
	for _, file := range files {
		formatter.VerboseLog("validating %s", file)
		v := ScenarioValidation{File: file, Valid: true}
		sc, err := harness.LoadScenario(file)
		if err != nil {
			v.Valid = false
			v.Error = err.Error()
			result.Valid = false
		} else {
			v.Name = sc.Name
		}
		result.Scenarios = append(result.Scenarios, v)
	}

	if formatter.Format == "json" {
		return outputValidateJSON(formatter, result)
	}
	return outputValidateText(formatter, result)
}

func outputValidateJSON(formatter *OutputFormatter, result ValidationResult) error {
	if result.Valid {
		return formatter.Success(result)
	}

	failed := invalidCount(result)
	if err := formatter.Failure(CodeScenarioInvalid, fmt.Sprintf("%d scenario(s) invalid", failed), result); err != nil {
		return err
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d scenario(s)", failed))
}

func outputValidateText(formatter *OutputFormatter, result ValidationResult) error {
	w := formatter.Writer
	for _, v := range result.Scenarios {
		if v.Valid {
			fmt.Fprintf(w, "✓ %s (%s)\n", filepath.Base(v.File), v.Name)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", filepath.Base(v.File))
		fmt.Fprintf(w, "  %s: %s\n", CodeScenarioInvalid, v.Error)
	}
	if result.Valid {
		return nil
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d scenario(s)", invalidCount(result)))
}

func invalidCount(result ValidationResult) int {
	n := 0
	for _, v := range result.Scenarios {
		if !v.Valid {
			n++
		}
	}
	return n
}
