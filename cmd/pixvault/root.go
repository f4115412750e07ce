package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pixvault/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		jsonOutput bool
		formatName string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "pixvault",
		Short: "Pixvault stores files and hands out capability-scoped access links",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			if formatName != "" {
				jsonOutput = true
			}
			return selectOutputFormat(formatName)
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().StringVar(&formatName, "format", "", "output format (json or yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newUploadCmd(cfg, &jsonOutput),
		newTokenCmd(cfg, &jsonOutput),
		newGetCmd(cfg),
		newMetaCmd(cfg, &jsonOutput),
		newListCmd(cfg, &jsonOutput),
		newRmCmd(cfg, &jsonOutput),
		newConfigCmd(cfg),
	)

	return cmd
}
