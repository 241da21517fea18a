package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"page-composer-backend/internal/exchange"
)

// ErrInvalidDocument is returned by validate when the file fails validation.
var ErrInvalidDocument = exchange.ErrInvalidDocument

type validationReport struct {
	File     string   `json:"file"`
	Valid    bool     `json:"isValid"`
	Sections int      `json:"sections"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func newValidateCmd() *cobra.Command {
	var outputMode string

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check an export document the way an import would",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(outputMode)
			if err != nil {
				return err
			}

			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			result := exchange.ParseAndValidate(data, exchange.FormatFromFilename(path))
			report := validationReport{
				File:     path,
				Valid:    result.IsValid,
				Errors:   nonNil(result.Errors),
				Warnings: nonNil(result.Warnings),
			}
			if result.Data != nil {
				report.Sections = len(result.Data.Sections)
			}

			if format != formatTable {
				if err := writeStructured(cmd.OutOrStdout(), format, report); err != nil {
					return err
				}
			} else {
				printReport(cmd, report)
			}

			if !report.Valid {
				return fmt.Errorf("%w: %s has %d error(s)", ErrInvalidDocument, path, len(report.Errors))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputMode, "output", "o", "table", "Output format (table|json|yaml)")

	return cmd
}

func printReport(cmd *cobra.Command, report validationReport) {
	out := cmd.OutOrStdout()
	if report.Valid {
		fmt.Fprintf(out, "%s: valid, %d section(s)\n", report.File, report.Sections)
	} else {
		fmt.Fprintf(out, "%s: invalid\n", report.File)
	}
	for _, msg := range report.Errors {
		fmt.Fprintf(out, "  error: %s\n", msg)
	}
	for _, msg := range report.Warnings {
		fmt.Fprintf(out, "  warning: %s\n", msg)
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
