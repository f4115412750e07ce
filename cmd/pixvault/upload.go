package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pixvault/internal/api"
	"pixvault/internal/config"
)

type uploadCmdOptions struct {
	name        string
	contentType string
	ownerID     string
	tagsJSON    string
	expiry      string
}

func newUploadCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	opts := &uploadCmdOptions{}
	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a file and print its signed URL",
		Args:  requireExactlyArgs(1, "exactly one file path is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd, cfg, opts, jsonOutput, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "stored file name (defaults to the basename)")
	cmd.Flags().StringVar(&opts.contentType, "content-type", "", "content type (detected when omitted)")
	cmd.Flags().StringVar(&opts.ownerID, "owner", "", "owner id recorded on the file")
	cmd.Flags().StringVar(&opts.tagsJSON, "tags", "", "tags as a JSON object")
	cmd.Flags().StringVar(&opts.expiry, "expiry", "", "signed URL lifetime, e.g. 1h or 30m")
	return cmd
}

func runUpload(cmd *cobra.Command, cfg *config.Config, opts *uploadCmdOptions, jsonOutput *bool, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	name := opts.name
	if name == "" {
		name = filepath.Base(path)
	}

	var tags map[string]any
	if opts.tagsJSON != "" {
		if err := json.Unmarshal([]byte(opts.tagsJSON), &tags); err != nil {
			return fmt.Errorf("invalid --tags: %w", err)
		}
	}

	return withClient(cfg, func(client *api.Client) error {
		resp, err := client.Upload(cmd.Context(), name, opts.contentType, file, opts.ownerID, tags, opts.expiry)
		if err != nil {
			return err
		}
		if *jsonOutput {
			return writeJSON(resp)
		}
		if err := writePlain("%s\n", resp.ID); err != nil {
			return err
		}
		return writePlain("%s\n", resp.SignedURL)
	})
}
