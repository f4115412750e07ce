package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"pixvault/internal/api"
	"pixvault/internal/config"
)

const (
	serverStartTimeout = 5 * time.Second
	serverPollInterval = 100 * time.Millisecond
)

// withClient runs fn against the configured API server, starting a local
// server process first when nothing is listening yet.
func withClient(cfg *config.Config, fn func(client *api.Client) error) error {
	client := api.NewClient(cfg.APIURL)

	ctx := context.Background()
	if err := client.Ping(ctx); err != nil {
		if !isConnRefused(err) {
			return fmt.Errorf("api server at %s: %w", cfg.APIURL, err)
		}
		if err := ensureServer(ctx, cfg, client); err != nil {
			return err
		}
	}

	return fn(client)
}

// ensureServer spawns this binary's srv command in the background and waits
// for it to answer health checks.
func ensureServer(ctx context.Context, cfg *config.Config, client *api.Client) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}

	cmd := exec.Command(exe, "srv")
	cmd.Env = append(os.Environ(),
		"PIXVAULT_DB="+cfg.DBPath,
		"PIXVAULT_API_URL="+cfg.APIURL,
	)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	_ = cmd.Process.Release()

	return waitForServer(ctx, client)
}

func waitForServer(ctx context.Context, client *api.Client) error {
	deadline := time.Now().Add(serverStartTimeout)
	for time.Now().Before(deadline) {
		if err := client.Ping(ctx); err == nil {
			return nil
		}
		time.Sleep(serverPollInterval)
	}
	return errors.New("server did not become ready; check logs or start it with 'pixvault srv'")
}

func isConnRefused(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return strings.Contains(err.Error(), "connection refused")
}
