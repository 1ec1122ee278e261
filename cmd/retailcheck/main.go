package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var version = "0.1.0"

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	// Load environment variables from .env file
	envErr := godotenv.Load()

	app := &cli.App{
		Name:    "retailcheck",
		Usage:   "End-to-end browser checks against a retail storefront",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "TOML suite configuration file",
				EnvVars: []string{"RETAILCHECK_CONFIG"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "human-readable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			logger, err := newLogger(c.Bool("verbose"))
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			if envErr != nil {
				logger.Debug(".env file not loaded, using environment variables", zap.Error(envErr))
			}
			c.App.Metadata = map[string]any{"logger": logger}
			return nil
		},
		After: func(c *cli.Context) error {
			if logger := loggerFrom(c); logger != nil {
				_ = logger.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			RunCommand(),
			ListCommand(),
			ScenariosCommand(),
			ServeCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
