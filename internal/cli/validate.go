package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meimodev/activid-web-sub001/internal/invitation"
)

// ValidationError is one problem found in an invitations directory.
type ValidationError struct {
	Code    string `json:"code"`
	Slug    string `json:"slug,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool              `json:"valid"`
	Invitations []string          `json:"invitations,omitempty"`
	Errors      []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <invitations-dir>",
		Short: "Validate invitation files",
		Long: `Validate every invitation in a directory of CUE files.

Each entry is checked against the invitation schema (templates, required
names, event times, photo counts) and all problems are reported at once.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loadResult, loadErrors := invitation.Load(dir, invitation.LoadModeCollectAll)

	// Directory-level failures: not found, no files, CUE syntax errors.
	if loadResult == nil && len(loadErrors) > 0 {
		return outputValidateError(formatter, loadErrorCode(loadErrors[0]), loadErrorMessage(loadErrors[0]), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, dir)

	slugs := make([]string, 0, len(loadResult.Invitations))
	for _, inv := range loadResult.Invitations {
		formatter.VerboseLog("Validated invitation: %s (%s)", inv.ID, inv.Template)
		slugs = append(slugs, inv.ID)
	}

	if len(loadErrors) > 0 {
		errs := make([]ValidationError, 0, len(loadErrors))
		for _, err := range loadErrors {
			errs = append(errs, toValidationError(err))
		}
		return outputValidationErrors(formatter, errs)
	}

	return outputValidateSuccess(formatter, slugs)
}

// loadErrorCode returns the code of an invitation.LoadError, or E001.
func loadErrorCode(err error) string {
	var loadErr *invitation.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return invitation.ErrCodeGeneric
}

func loadErrorMessage(err error) string {
	var loadErr *invitation.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Message
	}
	return err.Error()
}

func toValidationError(err error) ValidationError {
	var loadErr *invitation.LoadError
	if !errors.As(err, &loadErr) {
		return ValidationError{Code: invitation.ErrCodeGeneric, Message: err.Error()}
	}
	ve := ValidationError{
		Code:    loadErr.Code,
		Slug:    loadErr.Slug,
		Field:   loadErr.Field,
		Message: loadErr.Message,
	}
	if loadErr.Pos.IsValid() {
		ve.File = loadErr.Pos.Filename()
		ve.Line = loadErr.Pos.Line()
	}
	return ve
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, slugs []string) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Invitations: slugs})
	}

	fmt.Fprintf(formatter.Writer, "✓ All invitations valid (%d)\n", len(slugs))
	return nil
}

// outputValidateError outputs a single directory-level error.
func outputValidateError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs per-invitation validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, e := range errs {
		if e.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", e.File, e.Line)
		}
		where := e.Slug
		if e.Field != "" {
			where += "." + e.Field
		}
		if where != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", e.Code, where, e.Message)
		} else {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", e.Code, e.Message)
		}
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
