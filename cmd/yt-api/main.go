package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/vidgate/yt-api/pkg/api"
	"github.com/vidgate/yt-api/pkg/config"
	"github.com/vidgate/yt-api/pkg/gateway"
)

func main() {
	configFlag := flag.String("config", "", "Path to YAML config file")
	portFlag := flag.Int("port", 0, "Port for API server (overrides config)")
	debugFlag := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Printf("Config load failed: %v\n", err)
		os.Exit(1)
	}
	if *portFlag > 0 {
		cfg.Port = *portFlag
	}
	if *debugFlag {
		cfg.Debug = true
	}

	gw, err := gateway.New(cfg)
	if err != nil {
		fmt.Printf("Initialization failed: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gw.StartBackground(ctx)

	srv := &api.Server{
		Port:    cfg.Port,
		Service: gw,
	}

	go srv.BackgroundCleaner(gw.FileTTL)

	if sterr := srv.Start(); sterr != nil {
		slog.Error("Server crashed", "err", sterr)
		os.Exit(1)
	}
}
