package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/huddlehq/huddle/internal/config"
	"github.com/huddlehq/huddle/internal/daemon"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

func main() {
	configFlag := flag.String("config", "huddle.toml", "path to config file")
	flag.Parse()

	// A local .env is optional; real deployments set HUDDLE_* directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{Config: cfg}),
	)

	app.Run()
}
