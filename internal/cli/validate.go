package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/synclog/internal/harness"
)

// FileValidation is the validation result of one scenario file.
type FileValidation struct {
	Path   string                `json:"path"`
	Valid  bool                  `json:"valid"`
	Schema []harness.SchemaError `json:"schema_errors,omitempty"`
	Error  string                `json:"error,omitempty"`
}

// ValidationResult holds validation results for all files.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Validate scenario files without running them",
		Long: `Validate scenario files against the embedded CUE schema, then check
queue references and per-operation fields.

Exit codes:
  0 - All files are valid
  2 - One or more files are unreadable or invalid`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(paths))}
	for _, path := range paths {
		formatter.VerboseLog("Validating %s", path)
		fv := validateFile(path)
		if !fv.Valid {
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	if formatter.JSON() {
		if result.Valid {
			return formatter.Success(result)
		}
		if err := formatter.Failure(ErrCodeSchema, "one or more scenario files are invalid", result); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, "validation failed")
	}

	w := cmd.OutOrStdout()
	for _, fv := range result.Files {
		if fv.Valid {
			fmt.Fprintf(w, "✓ %s\n", fv.Path)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", fv.Path)
		for _, se := range fv.Schema {
			fmt.Fprintf(w, "  %s\n", se.Error())
		}
		if fv.Error != "" {
			fmt.Fprintf(w, "  %s\n", fv.Error)
		}
	}

	if !result.Valid {
		return NewExitError(ExitCommandError, "validation failed")
	}
	return nil
}

func validateFile(path string) FileValidation {
	fv := FileValidation{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		fv.Error = fmt.Sprintf("failed to read scenario file: %v", err)
		return fv
	}

	if fv.Schema = harness.ValidateSchema(path, data); len(fv.Schema) > 0 {
		return fv
	}

	if _, err := harness.ParseScenario(path, data); err != nil {
		fv.Error = err.Error()
		return fv
	}

	fv.Valid = true
	return fv
}
