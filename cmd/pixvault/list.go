package main

import (
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"pixvault/internal/api"
	"pixvault/internal/config"
)

func newListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		owner string
		limit int
		skip  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored files (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				query := url.Values{}
				if owner != "" {
					query.Set("owner", owner)
				}
				if limit > 0 {
					query.Set("limit", strconv.Itoa(limit))
				}
				if skip > 0 {
					query.Set("skip", strconv.Itoa(skip))
				}

				files, err := client.ListFiles(cmd.Context(), query)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(files)
				}
				return writeFileList(files)
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "filter by owner id")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of rows")
	cmd.Flags().IntVar(&skip, "skip", 0, "rows to skip")
	return cmd
}
