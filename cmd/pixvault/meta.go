package main

import (
	"github.com/spf13/cobra"

	"pixvault/internal/api"
	"pixvault/internal/config"
)

func newMetaCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "meta <file-id>",
		Short: "Show file metadata",
		Args:  requireExactlyArgs(1, "exactly one file id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetMetadata(cmd.Context(), args[0], token)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writeFileDetail(resp)
			})
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "capability token (required)")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}
