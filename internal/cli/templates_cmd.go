package cli

import (
	"github.com/spf13/cobra"

	"page-composer-backend/internal/models"
	"page-composer-backend/internal/sections"
)

func newTemplatesCmd() *cobra.Command {
	var outputMode string

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List the section templates in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(outputMode)
			if err != nil {
				return err
			}

			templates := sections.DefaultCatalog().List()
			if format != formatTable {
				return writeStructured(cmd.OutOrStdout(), format, templates)
			}

			rows := make([][]string, 0, len(templates))
			for _, tmpl := range templates {
				background, text := sections.ResolveColors(models.Section{Type: tmpl.Type, Props: tmpl.DefaultProps})
				rows = append(rows, []string{tmpl.ID, string(tmpl.Type), tmpl.Name, background, text})
			}
			return writeTable(cmd.OutOrStdout(), []string{"ID", "TYPE", "NAME", "BACKGROUND", "TEXT"}, rows)
		},
	}

	cmd.Flags().StringVarP(&outputMode, "output", "o", "table", "Output format (table|json|yaml)")

	return cmd
}
