package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"page-composer-backend/internal/document"
	"page-composer-backend/internal/exchange"
)

func newMergeCmd() *cobra.Command {
	var (
		mode        string
		preserveIDs bool
		outPath     string
		outputMode  string
	)

	cmd := &cobra.Command{
		Use:   "merge <base> <import>",
		Short: "Merge the sections of one export document into another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := exchange.Options{MergeMode: exchange.MergeMode(mode), PreserveIDs: preserveIDs}
			if err := opts.Validate(); err != nil {
				return err
			}

			base, err := readDocument(args[0])
			if err != nil {
				return err
			}
			imported, err := readDocument(args[1])
			if err != nil {
				return err
			}

			merged, err := exchange.Merge(imported.Sections, base.Sections, opts, document.UUIDGenerator{})
			if err != nil {
				return err
			}

			meta := base.Metadata
			meta.Version = ""
			doc := exchange.Export(merged, meta, time.Now())

			format := exchange.FormatJSON
			switch {
			case outputMode != "":
				if format, err = exchange.ParseFormat(outputMode); err != nil {
					return err
				}
			case outPath != "":
				format = exchange.FormatFromFilename(outPath)
			}

			data, err := exchange.Encode(doc, format)
			if err != nil {
				return err
			}

			if outPath == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d section(s) to %s\n", len(doc.Sections), outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(exchange.MergeAppend), "Merge mode (replace|append|prepend)")
	cmd.Flags().BoolVar(&preserveIDs, "preserve-ids", false, "Keep imported section ids unless they collide")
	cmd.Flags().StringVar(&outPath, "out", "", "Write the merged document to this file instead of stdout")
	cmd.Flags().StringVarP(&outputMode, "output", "o", "", "Document format (json|yaml); defaults to the --out extension")

	return cmd
}

func readDocument(path string) (exchange.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return exchange.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := exchange.Decode(data, exchange.FormatFromFilename(path))
	if err != nil {
		return exchange.Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}
