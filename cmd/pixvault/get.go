package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pixvault/internal/api"
	"pixvault/internal/config"
)

func newGetCmd(cfg *config.Config) *cobra.Command {
	var (
		output string
		token  string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "get <file-id>",
		Short: "Download file content",
		Args:  requireExactlyArgs(1, "exactly one file id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				if output == "" {
					return client.Download(cmd.Context(), args[0], token, false, os.Stdout)
				}

				if !force {
					if _, err := os.Stat(output); err == nil {
						return fmt.Errorf("%s already exists; pass --force to overwrite", output)
					}
				}
				file, err := os.Create(output)
				if err != nil {
					return err
				}
				defer file.Close()

				if err := client.Download(cmd.Context(), args[0], token, true, file); err != nil {
					// Do not leave a partial download behind.
					file.Close()
					_ = os.Remove(output)
					return err
				}
				return file.Close()
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write content to this path instead of stdout")
	cmd.Flags().StringVar(&token, "token", "", "capability token (required)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing output file")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}
