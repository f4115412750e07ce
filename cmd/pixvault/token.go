package main

import (
	"github.com/spf13/cobra"

	"pixvault/internal/api"
	"pixvault/internal/config"
)

type tokenCmdOptions struct {
	subject     string
	permissions []string
	expiry      string
}

func newTokenCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	opts := &tokenCmdOptions{}
	cmd := &cobra.Command{
		Use:   "token <file-id>",
		Short: "Mint a capability token for an existing file",
		Args:  requireExactlyArgs(1, "exactly one file id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.MintToken(cmd.Context(), args[0], api.TokenRequest{
					Subject:     opts.subject,
					Permissions: opts.permissions,
					Expiry:      opts.expiry,
				})
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writePlain("%s\n", resp.SignedURL)
			})
		},
	}

	cmd.Flags().StringVar(&opts.subject, "subject", "", "subject recorded in the token")
	cmd.Flags().StringSliceVarP(&opts.permissions, "perm", "p", nil, "granted permissions (read, download); repeatable")
	cmd.Flags().StringVar(&opts.expiry, "expiry", "", "token lifetime, e.g. 5m or 1h")
	return cmd
}
