package main

import (
	"github.com/spf13/cobra"

	"pixvault/internal/api"
	"pixvault/internal/config"
)

func newRmCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <file-id>",
		Short: "Delete a file (admin)",
		Args:  requireExactlyArgs(1, "exactly one file id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.DeleteFile(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writePlain("deleted %s\n", resp.ID)
			})
		},
	}
}
