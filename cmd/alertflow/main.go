package main

import (
	"context"
	"fmt"
	"os"

	"alertflow/internal/app"
	"alertflow/internal/config"

	"github.com/alecthomas/kingpin/v2"
	"github.com/coder/quartz"
)

var version = "dev"

// main starts alertflow service using file or directory config source.
// Params: CLI flags (--config.file or --config.dir, optional --config.check).
// Returns: process exit code by startup/run result.
func main() {
	var (
		configFile  = kingpin.Flag("config.file", "Path to one TOML config file.").String()
		configDir   = kingpin.Flag("config.dir", "Path to directory with TOML config fragments.").String()
		configCheck = kingpin.Flag("config.check", "Validate configuration and exit.").Bool()
	)
	kingpin.Version(version)
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	source, err := config.FromCLI(*configFile, *configDir)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	if *configCheck {
		cfg, err := config.LoadSnapshot(source)
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, "config invalid:", err.Error())
			os.Exit(1)
		}
		_, _ = fmt.Fprintf(os.Stdout, "config ok: %d channels, %d routing rules\n", len(cfg.Channels), len(cfg.Routing.Rule))
		return
	}

	service, err := app.NewService(source, quartz.NewReal())
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "service init failed:", err.Error())
		os.Exit(1)
	}

	if err := service.Run(context.Background()); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "service run failed:", err.Error())
		os.Exit(1)
	}
}
