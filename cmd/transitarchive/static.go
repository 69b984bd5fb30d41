package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/transitarchive/transitarchive/internal/ingest"
)

func newStaticCmd() *cobra.Command {
	var agencyID string

	cmd := &cobra.Command{
		Use:   "static",
		Short: "Fetch and register an agency's static schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStack(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			versioner := ingest.NewVersioner(s.catalog, s.storage, s.fetcher, nil)
			res, err := versioner.IngestStatic(cmd.Context(), agencyID)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVar(&agencyID, "agency", "", "agency id")
	cmd.MarkFlagRequired("agency")
	return cmd
}
