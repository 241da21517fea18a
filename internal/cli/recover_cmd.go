package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"page-composer-backend/internal/autosave"
	"page-composer-backend/internal/constants"
	"page-composer-backend/internal/exchange"
)

// recover only reads the store: stale and corrupt records are reported, never deleted.
func newRecoverCmd() *cobra.Command {
	var (
		dataDir    string
		key        string
		outputMode string
	)

	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Print the auto-saved page from a file store as an export document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := exchange.ParseFormat(outputMode)
			if err != nil {
				return err
			}

			store, err := autosave.NewFileStore(filepath.Join(dataDir, "autosave"))
			if err != nil {
				return err
			}

			data, err := store.Get(cmd.Context(), key)
			if errors.Is(err, autosave.ErrNotFound) {
				fmt.Fprintln(cmd.ErrOrStderr(), "No auto-saved data found.")
				return nil
			}
			if err != nil {
				return err
			}

			record, err := autosave.DecodeRecord(data)
			if err != nil {
				return fmt.Errorf("read auto-save record %q: %w", key, err)
			}
			if age := time.Since(record.SavedAt()); age > constants.AutoSaveRetention {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: record saved %s is older than the retention window; the server will discard it.\n",
					record.SavedAt().Format(time.RFC3339))
			}

			encoded, err := exchange.Encode(record.Document(), format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(encoded)
			return err
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Data directory of the server's file store")
	cmd.Flags().StringVar(&key, "key", constants.AutoSaveKey, "Auto-save record key")
	cmd.Flags().StringVarP(&outputMode, "output", "o", "json", "Document format (json|yaml)")

	return cmd
}
