package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

func newIngestCmd() *cobra.Command {
	var agencyID string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run one ingestion pass for an agency",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStack(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			run, err := s.coordinator().Run(cmd.Context(), agencyID)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		},
	}

	cmd.Flags().StringVar(&agencyID, "agency", "", "agency id to ingest")
	cmd.MarkFlagRequired("agency")
	return cmd
}
