// This is the main entrypoint for the playerbridge daemon.
// It handles configuration loading, server startup, and graceful shutdown.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"

	"playerbridge/internal/config"
	"playerbridge/internal/gstx"
	"playerbridge/internal/logger"
	"playerbridge/internal/server"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (defaults apply when empty)")
	uri := flag.String("uri", "", "Source URI, overrides player.uri")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *uri != "" {
		cfg.Player.URI = *uri
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	l, err := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.Component(l, "main")

	if cfg.Player.Backend == config.BackendGst {
		if err := gstx.Init(); err != nil {
			log.WithError(err).Fatal("GStreamer unavailable")
		}
	}

	srv, err := server.New(cfg, l)
	if err != nil {
		log.WithError(err).Fatal("Failed to create server")
	}

	shutdownHandler := server.NewShutdownHandler(context.Background(), srv)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Server error")
			os.Exit(1)
		}
	}()

	sig, err := shutdownHandler.Wait()
	if err != nil {
		log.WithError(err).Error("Shutdown error")
		os.Exit(1)
	}
	log.WithField("signal", sig).Info("Server shut down cleanly")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
