/*
gymbot logs in to a gym's web reservation portal and books the 11:00 AM
slot for the current day, unless a reservation already exists. It is meant
to be run once a day by an external scheduler.

Have a look at the README.md for more information.
*/
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/jakopako/gymbot/internal/browser"
	"github.com/jakopako/gymbot/internal/config"
	"github.com/jakopako/gymbot/internal/log"
	"github.com/jakopako/gymbot/internal/report"
	"github.com/jakopako/gymbot/internal/workflow"
	"gopkg.in/yaml.v3"
)

var version = "dev"

type cli struct {
	Config      string           `short:"c" help:"Optional yaml configuration file. Selectors and credentials can be set there instead of via environment variables." type:"path"`
	Debug       bool             `short:"d" help:"Set log level to 'debug' and store failure screenshots."`
	Summary     bool             `help:"Print a per-step summary table at the end of the run."`
	PrintConfig bool             `help:"Print the resolved configuration (credentials redacted) and exit."`
	Version     kong.VersionFlag `short:"v" help:"Print the version and exit."`
}

func main() {
	var flags cli
	kong.Parse(&flags,
		kong.Name("gymbot"),
		kong.Description("Automatically reserves the daily 11:00 AM gym slot."),
		kong.Vars{"version": version},
	)

	config.Debug = flags.Debug
	log.InitializeDefaultLogger()

	ctx := context.Background()
	settings, err := config.Resolve(ctx, flags.Config)
	if err != nil {
		slog.Error(fmt.Sprintf("%v", err))
		os.Exit(1)
	}

	if flags.PrintConfig {
		yamlData, err := yaml.Marshal(settings.Redacted())
		if err != nil {
			slog.Error(fmt.Sprintf("error while marshaling settings: %v", err))
			os.Exit(1)
		}
		fmt.Println(string(yamlData))
		return
	}

	if err := log.Initialize(settings.LogFile); err != nil {
		slog.Error(fmt.Sprintf("%v", err))
		os.Exit(1)
	}

	slog.Info("starting reservation run", slog.String("version", version))
	provider := func(ctx context.Context) (browser.Session, error) {
		return browser.NewChromeSession(ctx, &browser.ChromeConfig{UserAgent: settings.UserAgent})
	}
	result := workflow.New(settings, provider).Run(ctx)

	report.Log(result)
	if flags.Summary {
		report.PrintSummary(os.Stdout, result)
	}
	os.Exit(report.ExitCode(result))
}
