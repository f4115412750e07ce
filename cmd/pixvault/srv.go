package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"pixvault/internal/blobstore"
	"pixvault/internal/config"
	"pixvault/internal/server"
	"pixvault/internal/store"
	"pixvault/internal/token"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "srv",
		Short: "Run the pixvault API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cfg, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to the configured api_url host)")
	return cmd
}

func runServer(cfg *config.Config, addr string) error {
	secret := config.SigningSecret()
	if secret == "" {
		return fmt.Errorf("PIXVAULT_SIGNING_SECRET is not set; the server cannot mint or verify tokens without it")
	}

	fileStore, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store at %s: %w", cfg.DBPath, err)
	}
	defer fileStore.Close()

	blobStore, err := openBlobStore(cfg)
	if err != nil {
		return err
	}

	tokens, err := token.NewService(secret)
	if err != nil {
		return err
	}

	if addr == "" {
		addr, err = server.ListenAddr(cfg.APIURL)
		if err != nil {
			return err
		}
	}

	srv := server.New(addr, fileStore, blobStore, tokens, server.Options{
		BaseURL:            cfg.BaseURL,
		MaxUploadBytes:     cfg.Uploads.MaxUploadBytes,
		MultipartMaxMemory: cfg.Uploads.MultipartMaxMemory,
		DefaultTokenTTL:    cfg.DefaultTokenDuration(),
		UploadTokenTTL:     cfg.UploadTokenDuration(),
	}, slog.Default())

	slog.Info("starting server", "addr", addr, "db", cfg.DBPath, "backend", cfg.Storage.Backend)
	return srv.ListenAndServe()
}

func openBlobStore(cfg *config.Config) (blobstore.Store, error) {
	switch cfg.Storage.Backend {
	case "", config.StorageBackendLocalCAS:
		return blobstore.NewLocalCAS(cfg.BlobRoot)
	case config.StorageBackendS3:
		return blobstore.NewS3Store(context.Background(), blobstore.S3Options{
			Bucket: cfg.Storage.S3Bucket,
			Prefix: cfg.Storage.S3Prefix,
			Region: cfg.Storage.S3Region,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
