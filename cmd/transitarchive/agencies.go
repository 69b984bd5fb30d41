package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/transitarchive/transitarchive/internal/catalog"
)

// seedFile is the yaml shape accepted by `agencies seed`.
type seedFile struct {
	Agencies []seedAgency `yaml:"agencies"`
}

type seedAgency struct {
	AgencyID    string     `yaml:"agency_id"`
	DisplayName string     `yaml:"display_name"`
	Timezone    string     `yaml:"timezone"`
	StaticURL   string     `yaml:"static_url"`
	FeedAPIKey  string     `yaml:"feed_api_key"`
	Enabled     *bool      `yaml:"enabled"`
	Feeds       []seedFeed `yaml:"feeds"`
}

type seedFeed struct {
	FeedID   string `yaml:"feed_id"`
	FeedType string `yaml:"feed_type"`
	URL      string `yaml:"url"`
	Enabled  *bool  `yaml:"enabled"`
}

func newAgenciesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agencies",
		Short: "Manage agency configuration",
	}
	cmd.AddCommand(newAgenciesListCmd(), newAgenciesSeedCmd())
	return cmd
}

func newAgenciesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List enabled agencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStack(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			agencies, err := s.catalog.ListEnabledAgencies(cmd.Context())
			if err != nil {
				return err
			}
			for _, a := range agencies {
				fmt.Printf("%s\t%s\t%s\n", a.AgencyID, a.DisplayName, a.Timezone)
			}
			return nil
		},
	}
}

func newAgenciesSeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create or update agencies and feeds from a yaml file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read seed file: %w", err)
			}
			var seed seedFile
			if err := yaml.Unmarshal(data, &seed); err != nil {
				return fmt.Errorf("parse seed file: %w", err)
			}

			s, err := openStack(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			ctx := cmd.Context()
			for _, sa := range seed.Agencies {
				agency := catalog.Agency{
					AgencyID:    sa.AgencyID,
					DisplayName: sa.DisplayName,
					Timezone:    sa.Timezone,
					StaticURL:   sa.StaticURL,
					Enabled:     sa.Enabled == nil || *sa.Enabled,
				}
				if sa.FeedAPIKey != "" {
					agency.FeedAPIKey = &sa.FeedAPIKey
				}
				if err := s.catalog.UpsertAgency(ctx, agency); err != nil {
					return err
				}

				for _, sf := range sa.Feeds {
					if !catalog.ValidFeedType(sf.FeedType) {
						return fmt.Errorf("agency %s: invalid feed type %q", sa.AgencyID, sf.FeedType)
					}
					feed := catalog.Feed{
						FeedID:   sf.FeedID,
						AgencyID: sa.AgencyID,
						FeedType: sf.FeedType,
						URL:      sf.URL,
						Enabled:  sf.Enabled == nil || *sf.Enabled,
					}
					if err := s.catalog.UpsertFeed(ctx, feed); err != nil {
						return err
					}
				}
				fmt.Printf("seeded %s (%d feeds)\n", sa.AgencyID, len(sa.Feeds))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "agencies.yml", "seed file path")
	return cmd
}
